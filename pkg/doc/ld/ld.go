/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ld

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/bluele/gcache"
	jsonld "github.com/piprate/json-gold/ld"

	"github.com/hyperledger/aries-framework-go/component/log"
)

var logger = log.New("vc-test-generator/doc/ld")

const defaultCacheSize = 100

// ErrContextNotFound is returned when JSON-LD context document is neither preloaded nor can be fetched.
var ErrContextNotFound = errors.New("context document not found")

// Document is a JSON-LD context document with associated metadata.
type Document struct {
	URL         string          `json:"url,omitempty"`         // URL is a context URL that shows up in the documents.
	DocumentURL string          `json:"documentURL,omitempty"` // The final URL of the loaded context document.
	Content     json.RawMessage `json:"content,omitempty"`     // Content of the context document.
}

// DocumentLoader is an implementation of ld.DocumentLoader.
// Preloaded contexts are served first. Other documents are fetched with the remote loader
// and kept in an LRU cache.
type DocumentLoader struct {
	preloaded map[string]*jsonld.RemoteDocument
	cache     gcache.Cache
	remote    jsonld.DocumentLoader
}

type documentLoaderOpts struct {
	extraContexts        []Document
	remoteDocumentLoader jsonld.DocumentLoader
	cacheSize            int
}

// Opts configures DocumentLoader during creation.
type Opts func(opts *documentLoaderOpts)

// WithExtraContexts sets the contexts to preload.
func WithExtraContexts(contexts ...Document) Opts {
	return func(opts *documentLoaderOpts) {
		opts.extraContexts = append(opts.extraContexts, contexts...)
	}
}

// WithRemoteDocumentLoader specifies loader for fetching JSON-LD context documents from remote URLs.
// Without it, only preloaded contexts can be loaded.
func WithRemoteDocumentLoader(loader jsonld.DocumentLoader) Opts {
	return func(opts *documentLoaderOpts) {
		opts.remoteDocumentLoader = loader
	}
}

// WithCacheSize sets the number of fetched documents kept in the cache.
func WithCacheSize(size int) Opts {
	return func(opts *documentLoaderOpts) {
		opts.cacheSize = size
	}
}

// NewDocumentLoader returns a new DocumentLoader instance.
func NewDocumentLoader(opts ...Opts) (*DocumentLoader, error) {
	loaderOpts := &documentLoaderOpts{cacheSize: defaultCacheSize}

	for _, opt := range opts {
		opt(loaderOpts)
	}

	if loaderOpts.cacheSize <= 0 {
		return nil, fmt.Errorf("invalid cache size: %d", loaderOpts.cacheSize)
	}

	preloaded := make(map[string]*jsonld.RemoteDocument, len(loaderOpts.extraContexts))

	for _, c := range loaderOpts.extraContexts {
		content, err := jsonld.DocumentFromReader(bytes.NewReader(c.Content))
		if err != nil {
			return nil, fmt.Errorf("read context %s: %w", c.URL, err)
		}

		documentURL := c.DocumentURL
		if documentURL == "" {
			documentURL = c.URL
		}

		preloaded[c.URL] = &jsonld.RemoteDocument{
			DocumentURL: documentURL,
			Document:    content,
		}
	}

	return &DocumentLoader{
		preloaded: preloaded,
		cache:     gcache.New(loaderOpts.cacheSize).LRU().Build(),
		remote:    loaderOpts.remoteDocumentLoader,
	}, nil
}

// LoadDocument resolves JSON-LD document by URL.
func (l *DocumentLoader) LoadDocument(u string) (*jsonld.RemoteDocument, error) {
	if doc, ok := l.preloaded[u]; ok {
		return doc, nil
	}

	if cached, err := l.cache.Get(u); err == nil {
		return cached.(*jsonld.RemoteDocument), nil
	}

	if l.remote == nil {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, u)
	}

	logger.Debugf("fetching JSON-LD document %s", u)

	doc, err := l.remote.LoadDocument(u)
	if err != nil {
		return nil, fmt.Errorf("load remote context document: %w", err)
	}

	if err = l.cache.Set(u, doc); err != nil {
		logger.Warnf("cache JSON-LD document %s: %v", u, err)
	}

	return doc, nil
}

// NewRemoteDocumentLoader returns the json-gold loader fetching documents over HTTP.
func NewRemoteDocumentLoader(client *http.Client) jsonld.DocumentLoader {
	if client == nil {
		client = &http.Client{}
	}

	return jsonld.NewDefaultDocumentLoader(client)
}

// ReadContextFiles reads contexts given as "<url>=<path>" pairs.
func ReadContextFiles(specs []string) ([]Document, error) {
	docs := make([]Document, 0, len(specs))

	for _, spec := range specs {
		u, path, ok := strings.Cut(spec, "=")
		if !ok || u == "" || path == "" {
			return nil, fmt.Errorf("invalid context mapping %q: expected <url>=<path>", spec)
		}

		content, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("read context file for %s: %w", u, err)
		}

		docs = append(docs, Document{URL: u, Content: content})
	}

	return docs, nil
}
