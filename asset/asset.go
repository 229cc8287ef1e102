// Package asset loads audio files into memory, so they can be played by
// graph nodes without I/O on render goroutine.
package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/mp3"
	"github.com/dudk/phonograph/wav"
)

// ErrUnsupportedFormat is returned when file extension isn't known.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Asset is decoded signal. It's shared between nodes and must not be
// modified after load.
type Asset struct {
	Path       string
	SampleRate int
	Bus        phonograph.Bus
}

// Duration returns asset duration in seconds.
func (a *Asset) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(a.Bus.Size()) / float64(a.SampleRate)
}

// Load decodes wav or mp3 file.
func Load(path string) (*Asset, error) {
	load, err := loader(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	defer f.Close()
	bus, sampleRate, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", path, err)
	}
	return &Asset{
		Path:       path,
		SampleRate: sampleRate,
		Bus:        bus,
	}, nil
}

func loader(path string) (func(*os.File) (phonograph.Bus, int, error), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return func(f *os.File) (phonograph.Bus, int, error) {
			return wav.Load(f)
		}, nil
	case ".mp3":
		return func(f *os.File) (phonograph.Bus, int, error) {
			return mp3.Load(f)
		}, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Save encodes bus into wav or mp3 file with default settings.
func Save(path string, bus phonograph.Bus, sampleRate int) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wav" && ext != ".mp3" {
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save asset: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if ext == ".wav" {
		return wav.Write(f, bus, sampleRate, wav.DefaultBitDepth)
	}
	return mp3.Write(f, bus, sampleRate, mp3.Options{})
}

// Cache keeps loaded assets by path. It's safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	assets map[string]*entry
}

type entry struct {
	once  sync.Once
	asset *Asset
	err   error
}

// NewCache creates empty cache.
func NewCache() *Cache {
	return &Cache{assets: make(map[string]*entry)}
}

// Get returns cached asset or loads it. Failed loads are not cached.
func (c *Cache) Get(path string) (*Asset, error) {
	c.mu.Lock()
	e, ok := c.assets[path]
	if !ok {
		e = &entry{}
		c.assets[path] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.asset, e.err = Load(path)
	})
	if e.err != nil {
		c.mu.Lock()
		if c.assets[path] == e {
			delete(c.assets, path)
		}
		c.mu.Unlock()
		return nil, e.err
	}
	return e.asset, nil
}

// Len returns number of cached assets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.assets)
}

// Purge drops every cached asset.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets = make(map[string]*entry)
}
