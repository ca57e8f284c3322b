// Package container is the composition root shared by the server and worker
// commands. It owns the infrastructure and builds the queue services on it.
package container

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/Abraxas-365/docqueue/pkg/analysis/analysisanthropic"
	"github.com/Abraxas-365/docqueue/pkg/analysis/analysisapi"
	"github.com/Abraxas-365/docqueue/pkg/analysis/analysisinfra"
	"github.com/Abraxas-365/docqueue/pkg/config"
	"github.com/Abraxas-365/docqueue/pkg/fsx"
	"github.com/Abraxas-365/docqueue/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/docqueue/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxapi"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxauto"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds shared infrastructure and the services built on it.
type Container struct {
	Config *config.Config

	// Infrastructure
	Backend    *jobxauto.Backend
	DB         *sqlx.DB
	FileSystem fsx.FileSystem
	S3Client   *s3.Client

	// Services
	Submitter     *jobx.Submitter
	StatusService *jobx.StatusService
	ResultStore   analysis.ResultStore

	// Handler is nil unless the container was built for workers.
	Handler *analysis.Handler
}

// Options selects the optional parts of the container.
type Options struct {
	// Workers builds the analysis handler, which needs model credentials.
	Workers bool
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	logx.Info("container: initializing")

	c := &Container{Config: cfg}
	if err := c.initInfrastructure(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}
	if err := c.initServices(opts); err != nil {
		c.Cleanup()
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"backend":      c.Backend.Queue.Backend(),
		"storage":      cfg.Storage.Mode,
		"result_store": c.ResultStore != nil,
		"workers":      opts.Workers,
	}).Info("container: initialized")
	return c, nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	c.Backend = jobxauto.Open(ctx, jobxauto.Config{
		URL:          c.Config.Redis.URL,
		KeyPrefix:    c.Config.Redis.KeyPrefix,
		ProbeTimeout: c.Config.Redis.ProbeTimeout,
		DialTimeout:  c.Config.Redis.DialTimeout,
		ReadTimeout:  c.Config.Redis.ReadTimeout,
		WriteTimeout: c.Config.Redis.WriteTimeout,
		PollInterval: c.Config.Jobx.PollInterval,
	})

	if err := c.initFileStorage(ctx); err != nil {
		return err
	}
	return c.initDatabase(ctx)
}

func (c *Container) initFileStorage(ctx context.Context) error {
	st := c.Config.Storage

	switch st.Mode {
	case config.StorageModeS3:
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(st.AWSRegion))
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		c.S3Client = s3.NewFromConfig(awsCfg)
		c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, st.AWSBucket, st.S3Prefix)
		logx.Infof("container: S3 storage configured (bucket: %s, region: %s)", st.AWSBucket, st.AWSRegion)

	case config.StorageModeLocal:
		localFS, err := fsxlocal.NewLocalFileSystem(st.UploadDir)
		if err != nil {
			return fmt.Errorf("init local storage: %w", err)
		}
		c.FileSystem = localFS
		logx.Infof("container: local storage configured (path: %s)", localFS.GetBasePath())

	default:
		return fmt.Errorf("unknown STORAGE_MODE %q (use 'local' or 's3')", st.Mode)
	}
	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	dbCfg := c.Config.Database
	if !dbCfg.Enabled {
		logx.Info("container: result store disabled, results live on job records only")
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dbCfg.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	c.DB = db

	store := analysisinfra.NewPostgresResultStore(db)
	if dbCfg.MigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}
	c.ResultStore = store
	logx.Info("container: database connected")
	return nil
}

func (c *Container) initServices(opts Options) error {
	c.Submitter = jobx.NewSubmitter(c.Backend.Queue)
	c.StatusService = jobx.NewStatusService(c.Backend.Queue)

	if !opts.Workers {
		return nil
	}

	an := c.Config.Analysis
	analyzer, err := analysisanthropic.New(an.APIKey, []analysisanthropic.Option{
		analysisanthropic.WithModel(an.Model),
		analysisanthropic.WithMaxTokens(an.MaxTokens),
	})
	if err != nil {
		return fmt.Errorf("init analyzer: %w", err)
	}
	c.Handler = analysis.NewHandler(c.FileSystem, analyzer, c.ResultStore)
	return nil
}

// APIHandlers builds the HTTP handlers over the queue services.
func (c *Container) APIHandlers() *jobxapi.Handlers {
	return jobxapi.NewHandlers(c.Submitter, c.StatusService, c.FileSystem,
		jobxapi.WithMaxUploadBytes(c.Config.Storage.MaxUploadBytes),
	)
}

// AnalysisHandlers builds the result endpoints. They answer 503 when the
// result store is disabled.
func (c *Container) AnalysisHandlers() *analysisapi.Handlers {
	return analysisapi.NewHandlers(c.ResultStore)
}

// NewPool builds a worker pool running the analysis handler. The container
// must have been built with Options.Workers.
func (c *Container) NewPool() *jobx.Pool {
	j := c.Config.Jobx
	return jobx.NewPool(c.Backend.Queue, c.Handler.Handle,
		jobx.WithConcurrency(j.Concurrency),
		jobx.WithLeaseDuration(j.LeaseDuration),
		jobx.WithDequeueTimeout(j.DequeueTimeout),
		jobx.WithIdleInterval(j.IdleInterval),
		jobx.WithBackoffInterval(j.BackoffInterval),
		jobx.WithShutdownTimeout(j.ShutdownTimeout),
	)
}

func (c *Container) Cleanup() {
	logx.Info("container: cleaning up")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("container: error closing database: %v", err)
		}
	}
	if c.Backend != nil {
		if err := c.Backend.Close(); err != nil {
			logx.Errorf("container: error closing redis: %v", err)
		}
	}
}
