package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/vitche/storage-timeline/internal/config"
	"github.com/vitche/storage-timeline/internal/install"
	"github.com/vitche/storage-timeline/internal/transport"
	"github.com/vitche/storage-timeline/pkg/timeline"
)

// session owns the parser module and the fetchers for one command run.
type session struct {
	engine  *timeline.WazeroEngine
	modules *timeline.ModuleLoader
	loader  *timeline.Loader
	closers []func() error
}

// newSession initializes the parser module described by cfg. dataLocation
// selects the data fetcher; empty means the session only parses bytes it is
// handed.
func newSession(ctx context.Context, cfg *config.Config, dataLocation string) (*session, error) {
	client, err := transport.BuildClient(cfg.HTTP.Timeout, cfg.HTTP.InsecureSkipVerify)
	if err != nil {
		return nil, err
	}

	s := &session{}
	fetchers := &fetcherSet{cfg: cfg, client: client, session: s}

	moduleKind := cfg.ModuleSource()
	moduleLocation := cfg.Module.Location
	if moduleKind == timeline.SourceFile {
		moduleLocation = install.Resolve(moduleLocation, moduleDir(cfg))
	}
	moduleFetcher, err := fetchers.get(moduleKind, "")
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	var dataFetcher timeline.Fetcher
	if dataLocation != "" {
		dataKind := cfg.DataSource(dataLocation)
		dataFetcher, err = fetchers.get(dataKind, cfg.Data.Root)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		log.Printf("[DEBUG] Reading timeline data from %s source", dataKind)
	}

	s.engine = timeline.NewWazeroEngine(timeline.WithModuleOutput(io.Discard, log.Writer()))
	s.modules = timeline.NewModuleLoader(s.engine, moduleFetcher)
	s.loader = timeline.NewLoader(s.modules, dataFetcher)

	log.Printf("[INFO] Loading parser module from %s (%s source)", moduleLocation, moduleKind)
	if err := s.modules.Initialize(ctx, moduleLocation); err != nil {
		s.Close(ctx)
		return nil, err
	}
	log.Printf("[INFO] Parser module ready")

	return s, nil
}

// Close releases the engine and any Redis connections.
func (s *session) Close(ctx context.Context) error {
	var errs []error
	if s.engine != nil {
		if err := s.engine.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fetcherSet builds fetchers on demand so module and data share one Redis
// client when both live there.
type fetcherSet struct {
	cfg     *config.Config
	client  *http.Client
	session *session
	redis   *timeline.RedisFetcher
}

func (f *fetcherSet) get(kind timeline.SourceKind, root string) (timeline.Fetcher, error) {
	switch kind {
	case timeline.SourceHTTP:
		return timeline.NewHTTPFetcher(f.client), nil
	case timeline.SourceFile:
		return timeline.NewFileFetcher(root), nil
	case timeline.SourceRedis:
		if f.redis == nil {
			opts, err := f.cfg.RedisOptions()
			if err != nil {
				return nil, err
			}
			f.redis = timeline.NewRedisFetcher(opts, f.cfg.Redis.KeyPrefix)
			f.session.closers = append(f.session.closers, f.redis.Close)
		}
		return f.redis, nil
	default:
		return nil, fmt.Errorf("unknown source: %s", kind)
	}
}
