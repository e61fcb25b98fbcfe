package app

import (
	"context"
	"fmt"

	"github.com/announa/blogpost/configs"
	"github.com/announa/blogpost/internal/adapters"
	"github.com/announa/blogpost/internal/ports"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type storages struct {
	users    ports.UserStorage
	tokens   ports.TokenStorage
	posts    ports.PostStorage
	products ports.ProductStorage
	pinger   ports.Pinger
	close    func(ctx context.Context) error
}

func openStorages(ctx context.Context, cfg *configs.Config, logger *zap.Logger) (*storages, error) {
	switch cfg.Database.Driver {
	case configs.DriverMongo:
		client, db, err := adapters.ConnectMongo(ctx, cfg.Database.URI, cfg.Database.Dbname, logger)
		if err != nil {
			return nil, err
		}
		return &storages{
			users:    adapters.NewUserStorageMongo(db, logger),
			tokens:   adapters.NewTokenStorageMongo(db, logger),
			posts:    adapters.NewPostStorageMongo(db, logger),
			products: adapters.NewProductStorageMongo(db, logger),
			pinger:   adapters.NewMongoPinger(client),
			close:    client.Disconnect,
		}, nil
	case configs.DriverPostgres:
		return openGorm(postgres.Open(cfg.PostgresDSN()), logger)
	case configs.DriverSQLite:
		return openGorm(sqlite.Open(cfg.Database.Path), logger)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", configs.ErrInvalidConfig, cfg.Database.Driver)
	}
}

func openGorm(dialector gorm.Dialector, logger *zap.Logger) (*storages, error) {
	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error while opening the database: %w", err)
	}
	if err := adapters.Migrate(db); err != nil {
		return nil, err
	}
	logger.Info("database ready", zap.String("dialect", dialector.Name()))
	return &storages{
		users:    adapters.NewUserStorage(db, logger),
		tokens:   adapters.NewTokenStorage(db, logger),
		posts:    adapters.NewPostStorage(db, logger),
		products: adapters.NewProductStorage(db, logger),
		pinger:   adapters.NewGormPinger(db),
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}
