package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mvp-joe/codectx/internal/config"
	"github.com/mvp-joe/codectx/internal/embed"
	"github.com/mvp-joe/codectx/internal/vectorstore"
)

const timeRounding = 10 * time.Millisecond

// deps is the wired service graph shared by the commands.
type deps struct {
	cfg      *config.Config
	rootAbs  string
	provider *embed.Cached
	store    vectorstore.Store
}

func buildDeps() (*deps, error) {
	rootAbs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", rootDir, err)
	}

	cfg, err := config.Load(rootAbs)
	if err != nil {
		return nil, err
	}

	inner, err := embed.NewProvider(cfg.EmbedConfig())
	if err != nil {
		return nil, err
	}
	provider, err := embed.NewCached(inner, cfg.Embedding.CacheSize)
	if err != nil {
		return nil, err
	}

	var store vectorstore.Store
	switch cfg.VectorStore.Backend {
	case "embedded":
		store = vectorstore.NewChromemStore()
	default:
		store = vectorstore.NewClient(cfg.StoreConfig())
	}

	return &deps{
		cfg:      cfg,
		rootAbs:  rootAbs,
		provider: provider,
		store:    store,
	}, nil
}

func (d *deps) close() {
	d.provider.Close()
}
