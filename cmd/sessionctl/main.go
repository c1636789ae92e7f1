package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"fe-v2/internal/apiclient"
	"fe-v2/internal/config"
	"fe-v2/internal/domain"
	"fe-v2/internal/service/session"
	"fe-v2/internal/storage"
	"fe-v2/pkg/logger"
)

const usage = "Usage: sessionctl [status|whoami|clear|copy] [flags]"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	flags := pflag.NewFlagSet("sessionctl "+command, pflag.ExitOnError)
	flags.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "session storage backend to operate on")
	flags.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "database file for the sqlite backend")
	to := flags.String("to", "", "copy: destination storage backend")
	toRedisURL := flags.String("to-redis-url", "", "copy: destination redis URL")
	toSQLitePath := flags.String("to-sqlite-path", "", "copy: destination sqlite file")
	toDatabaseURL := flags.String("to-database-url", "", "copy: destination postgres URL")
	_ = flags.Parse(os.Args[2:])

	// stdout carries the command output
	log, err := logger.NewWithFormat("warn", logger.FormatConsole, os.Stderr)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src, err := storage.New(ctx, cfg, log)
	if err != nil {
		fmt.Printf("Failed to open %s storage: %v\n", cfg.StorageBackend, err)
		os.Exit(1)
	}
	defer src.Close()

	switch command {
	case "status":
		err = status(ctx, os.Stdout, src, time.Now())

	case "whoami":
		err = whoami(ctx, os.Stdout, src, cfg, log)

	case "clear":
		if err = clearSession(ctx, src); err == nil {
			fmt.Println("✅ Session cleared")
		}

	case "copy":
		dstCfg := *cfg
		dstCfg.StorageBackend = *to
		if *toRedisURL != "" {
			dstCfg.RedisURL = *toRedisURL
		}
		if *toSQLitePath != "" {
			dstCfg.SQLitePath = *toSQLitePath
		}
		if *toDatabaseURL != "" {
			dstCfg.DatabaseURL = *toDatabaseURL
		}
		if dstCfg.StorageBackend == "" {
			err = errors.New("--to is required")
			break
		}

		var dst storage.Backend
		dst, err = storage.New(ctx, &dstCfg, log)
		if err != nil {
			break
		}
		defer dst.Close()

		var copied int
		if copied, err = copySession(ctx, src, dst); err == nil {
			fmt.Printf("✅ Copied %d keys from %s to %s\n", copied, src.Name(), dst.Name())
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("❌ %s failed: %v\n", command, err)
		os.Exit(1)
	}
}

// loadPair reads the persisted pair, nil when there is none. An undecodable
// record counts as none, as it does when the portal hydrates.
func loadPair(ctx context.Context, kv storage.KeyValue) (*domain.TokenPair, error) {
	raw, err := kv.Get(ctx, storage.KeyTokens)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pair, err := session.DecodeTokens(raw)
	if err != nil {
		return nil, nil
	}
	return pair, nil
}

// status prints what is persisted without ever printing a credential
func status(ctx context.Context, w io.Writer, kv storage.KeyValue, now time.Time) error {
	pair, err := loadPair(ctx, kv)
	if err != nil {
		return err
	}

	credential, field := pair.Credential()
	if credential == "" {
		fmt.Fprintln(w, "session:     none")
	} else {
		fmt.Fprintf(w, "session:     present (credential: %s)\n", field)
		if info, ok := session.DecodeCredential(credential); ok {
			if info.Subject != "" {
				fmt.Fprintf(w, "subject:     %s\n", info.Subject)
			}
			if !info.ExpiresAt.IsZero() {
				state := "valid"
				if info.Expired(now) {
					state = "expired"
				}
				fmt.Fprintf(w, "expires:     %s (%s)\n", info.ExpiresAt.UTC().Format(time.RFC3339), state)
			}
		}
	}

	_, err = kv.Get(ctx, storage.KeyOAuthState)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintln(w, "login state: none")
	case err != nil:
		return err
	default:
		fmt.Fprintln(w, "login state: outstanding")
	}
	return nil
}

// whoami asks the API who the persisted credential belongs to
func whoami(ctx context.Context, w io.Writer, kv storage.KeyValue, cfg *config.Config, log *logger.Logger) error {
	pair, err := loadPair(ctx, kv)
	if err != nil {
		return err
	}
	credential, _ := pair.Credential()
	if credential == "" {
		return errors.New("no persisted session")
	}

	client, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, apiclient.CredentialFunc(func() string {
		return credential
	}), log)
	if err != nil {
		return err
	}

	profile, err := client.WhoAmI(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "subject: %s\n", profile.Subject)
	if profile.Email != nil {
		fmt.Fprintf(w, "email:   %s\n", *profile.Email)
	}
	if profile.Name != nil {
		fmt.Fprintf(w, "name:    %s\n", *profile.Name)
	}
	return nil
}

// clearSession removes the persisted pair and any outstanding login state
func clearSession(ctx context.Context, kv storage.KeyValue) error {
	for _, key := range []string{storage.KeyTokens, storage.KeyOAuthState} {
		if err := kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// copySession copies the persisted keys from src to dst. Keys absent from src
// are left untouched in dst.
func copySession(ctx context.Context, src, dst storage.KeyValue) (int, error) {
	copied := 0
	for _, key := range []string{storage.KeyTokens, storage.KeyOAuthState} {
		value, err := src.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("read %s: %w", key, err)
		}
		if err := dst.Set(ctx, key, value); err != nil {
			return copied, fmt.Errorf("write %s: %w", key, err)
		}
		copied++
	}
	return copied, nil
}
