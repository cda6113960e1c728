package ord

import (
	"context"
	"strings"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core"
	"github.com/gaze-network/ord-indexer/core/datasources"
	"github.com/gaze-network/ord-indexer/core/indexer"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/internal/config"
	"github.com/gaze-network/ord-indexer/internal/kvdb"
	"github.com/gaze-network/ord-indexer/internal/postgres"
	"github.com/gaze-network/ord-indexer/modules/ord/api/httphandler"
	"github.com/gaze-network/ord-indexer/modules/ord/repository/kvstore"
	"github.com/gaze-network/ord-indexer/modules/ord/usecase"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
)

// PostgresTable is the key-value table created by the postgres migrations.
const PostgresTable = "ord_kv"

const shutdownTimeout = 60 * time.Second

var _ core.IndexerWorker = (*Module)(nil)

// Module runs the ord indexer. It owns the storage, so the API keeps serving the
// last committed block when the indexer halts, until the module is shut down.
type Module struct {
	indexer *indexer.Indexer[*types.Block]
	closers []func() error
}

func (m *Module) Run(ctx context.Context) error {
	return errors.WithStack(m.indexer.Run(ctx))
}

func (m *Module) State() indexer.State {
	return m.indexer.State()
}

// Shutdown stops the indexer, then closes the storage.
func (m *Module) Shutdown() error {
	var errList []error
	if m.indexer != nil {
		errList = append(errList, m.indexer.ShutdownWithTimeout(shutdownTimeout))
	}
	for i := len(m.closers) - 1; i >= 0; i-- {
		errList = append(errList, m.closers[i]())
	}
	return errors.WithStack(errors.Join(errList...))
}

func New(injector do.Injector) (core.IndexerWorker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	ordConf := conf.Modules.Ord
	ctx = logger.WithContext(ctx, slogx.String("module", "ord"))

	module := &Module{}
	var db kvdb.DB
	switch strings.ToLower(ordConf.Database) {
	case "", "leveldb":
		levelDB, err := kvdb.OpenLevelDB(ordConf.LevelDB.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "can't open leveldb at %q", ordConf.LevelDB.Path)
		}
		module.closers = append(module.closers, levelDB.Close)
		db = levelDB
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, ordConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for indexer")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		module.closers = append(module.closers, func() error {
			pg.Close()
			return nil
		})
		db = kvdb.NewPostgresDB(pg, PostgresTable)
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for indexer is not supported", ordConf.Database)
	}

	repo, err := kvstore.New(db, ordConf.CacheSize, ordConf.UndoRetention)
	if err != nil {
		return nil, errors.Join(errors.Wrap(err, "can't create repository"), module.Shutdown())
	}

	var datasource datasources.Datasource[*types.Block]
	switch strings.ToLower(ordConf.Datasource) {
	case "", "bitcoin-node":
		btcClient := do.MustInvoke[*rpcclient.Client](injector)
		datasource = datasources.NewBitcoinNode(btcClient, ordConf.MaxRetries)
	default:
		return nil, errors.Join(errors.Wrapf(errs.Unsupported, "%q datasource is not supported", ordConf.Datasource), module.Shutdown())
	}

	processor := NewProcessor(repo, repo, conf.Network, ProcessorOptions{
		IndexRunes:        ordConf.IndexRunes,
		IndexInscriptions: ordConf.IndexInscriptions,
	}, []func(context.Context) error{
		func(context.Context) error {
			repo.Close()
			return nil
		},
	})
	module.indexer = indexer.New[*types.Block](processor, datasource, indexer.Options{
		PollingInterval: ordConf.PollingInterval,
	})
	if err := processor.VerifyStates(ctx); err != nil {
		return nil, errors.Join(errors.WithStack(err), module.Shutdown())
	}

	// Mount API
	for _, handler := range lo.Uniq(ordConf.APIHandlers) {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			ordUsecase := usecase.New(repo, conf.Network, ordConf.IndexRunes)
			ordHTTPHandler := httphandler.New(conf.Network, ordUsecase)
			if err := ordHTTPHandler.Mount(httpServer); err != nil {
				return nil, errors.Join(errors.Wrap(err, "can't mount ord API"), module.Shutdown())
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Join(errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler), module.Shutdown())
		}
	}

	return module, nil
}
