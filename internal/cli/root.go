// Package cli implements the auditectl administration commands
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"audite/internal/config"
	"audite/internal/repository"
	"audite/internal/seed"
)

// StoreOpener connects to the storage a seed is written to. The returned
// func releases the connection.
type StoreOpener func(ctx context.Context) (seed.Store, func(), error)

// NewRootCommand creates the 'auditectl' command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(openMongoStore)
}

func newRootCommand(open StoreOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auditectl",
		Short: "Manage energy-audit questionnaires",
		Long: `auditectl loads questionnaire definitions into the audit database
and checks their conditional structure before they go live.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewLintCommand())
	cmd.AddCommand(newSeedCommand(open))
	return cmd
}

func openMongoStore(ctx context.Context) (seed.Store, func(), error) {
	cfg, err := config.LoadMongo()
	if err != nil {
		return seed.Store{}, nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return seed.Store{}, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return seed.Store{}, nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	store := seed.Store{
		Categories: repository.NewCategoryRepo(db),
		Forms:      repository.NewFormRepo(db),
		Questions:  repository.NewQuestionRepo(db),
	}
	return store, func() { client.Disconnect(context.Background()) }, nil
}
