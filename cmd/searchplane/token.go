package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchplane/internal/config"
	"github.com/kailas-cloud/searchplane/internal/domain"
	tokenrepo "github.com/kailas-cloud/searchplane/internal/repository/token"
	tokenuc "github.com/kailas-cloud/searchplane/internal/usecase/token"
)

// tokenAdmin manages tokens directly in the token store.
type tokenAdmin interface {
	Put(ctx context.Context, appID string, t domain.Token) (domain.Token, error)
	Delete(ctx context.Context, appID, tokenUUID string) error
	DeleteAll(ctx context.Context, appID string) error
	List(ctx context.Context, appID string) ([]domain.Token, error)
}

// tokenAdminFactory opens a tokenAdmin for env. The returned func releases it.
type tokenAdminFactory func(ctx context.Context, env string) (tokenAdmin, func(), error)

func openTokenAdmin(ctx context.Context, env string) (tokenAdmin, func(), error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("database not ready: %w", err)
	}
	return tokenuc.New(tokenrepo.New(store, cfg.Storage.KeyPrefix)), store.Close, nil
}

func newTokenCmd(env *string, open tokenAdminFactory) *cobra.Command {
	var appID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens in the token store",
	}
	cmd.PersistentFlags().StringVar(&appID, "app", "", "application id")
	_ = cmd.MarkPersistentFlagRequired("app")

	withAdmin := func(fn func(ctx context.Context, admin tokenAdmin, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			admin, release, err := open(c.Context(), *env)
			if err != nil {
				return err
			}
			defer release()
			return fn(c.Context(), admin, c.OutOrStdout(), args)
		}
	}

	var (
		tok       domain.Token
		deleteAll bool
	)

	add := &cobra.Command{
		Use:   "add",
		Short: "Create or replace a token",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(ctx context.Context, admin tokenAdmin, out io.Writer, _ []string) error {
			saved, err := admin.Put(ctx, appID, tok)
			if err != nil {
				return err
			}
			return printJSON(out, saved)
		}),
	}
	add.Flags().StringVar(&tok.UUID, "uuid", "", "token value (generated when empty)")
	add.Flags().StringSliceVar(&tok.Indices, "index", nil, "allowed index (repeatable; none allows all)")
	add.Flags().StringSliceVar(&tok.Endpoints, "endpoint", nil, `allowed endpoint as "method~~path" (repeatable)`)
	add.Flags().StringSliceVar(&tok.HTTPReferrers, "referrer", nil, "allowed HTTP referrer (repeatable)")
	add.Flags().Int64Var(&tok.SecondsValid, "seconds-valid", 0, "validity window in seconds (0 never expires)")

	del := &cobra.Command{
		Use:   "delete [token-uuid]",
		Short: "Delete one token, or every token of the app with --all",
		Args: func(_ *cobra.Command, args []string) error {
			switch {
			case len(args) > 1:
				return fmt.Errorf("accepts at most 1 arg, received %d", len(args))
			case deleteAll == (len(args) == 1):
				return fmt.Errorf("pass either a token uuid or --all")
			}
			return nil
		},
		RunE: withAdmin(func(ctx context.Context, admin tokenAdmin, _ io.Writer, args []string) error {
			if deleteAll {
				return admin.DeleteAll(ctx, appID)
			}
			return admin.Delete(ctx, appID, args[0])
		}),
	}
	del.Flags().BoolVar(&deleteAll, "all", false, "delete every token of the app")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the tokens of an app",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(ctx context.Context, admin tokenAdmin, out io.Writer, _ []string) error {
			tokens, err := admin.List(ctx, appID)
			if err != nil {
				return err
			}
			return printJSON(out, tokens)
		}),
	}

	cmd.AddCommand(add, del, list)
	return cmd
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
