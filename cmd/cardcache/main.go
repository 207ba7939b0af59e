package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/guessthat/cardcache/internal/config"
	"github.com/guessthat/cardcache/internal/domain"
	"github.com/guessthat/cardcache/internal/gitpack"
	"github.com/guessthat/cardcache/internal/remote"
	"github.com/guessthat/cardcache/internal/replenish"
	"github.com/guessthat/cardcache/internal/session"
	"github.com/guessthat/cardcache/internal/storage"
)

const usage = `usage: cardcache [flags] <command> [args]

commands:
  seed                       seed the current bucket if it is empty
  topup                      top up the current bucket if stock is low
  draw [count]               top up if low, then draw cards for a turn
  list                       list all cards across buckets
  create <target> [words,…]  create a custom card in the current bucket
  delete <id>                move a card to the trash
  restore <id>               restore a card from the trash
  trash                      list trashed cards
  import <git-url>           import card packs from a git repository
  watch                      seed, top up and keep the bucket stocked
`

func main() {
	flags := pflag.NewFlagSet("cardcache", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to a YAML config file")
	flags.String("db", "", "Path to the SQLite database file")
	flags.String("packs-dir", "", "Directory for imported card-pack checkouts")
	flags.Int("turn-size", 0, "Cards to draw per turn")
	flags.String("remote-url", "", "Base URL of the card-generation service")
	flags.Int("remote-timeout", 0, "Remote request timeout in seconds")
	flags.String("lang", "", "Bucket language")
	flags.String("category", "", "Bucket category")
	flags.String("difficulty", "", "Bucket difficulty (easy|medium|hard)")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, "\nflags:")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	if err := run(cfg, log, args[0], args[1:]); err != nil {
		log.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger, command string, args []string) error {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	bucket := cfg.PlayBucket()
	client := remote.NewClient(cfg.Remote.BaseURL, time.Duration(cfg.Remote.TimeoutSeconds)*time.Second)
	policy := replenish.NewPolicy(db, client, log)
	ctx := context.Background()

	switch command {
	case "seed":
		return policy.EnsureSeed(bucket)

	case "topup":
		policy.TopUpIfLow(ctx, bucket)
		return nil

	case "draw":
		count := cfg.TurnSize
		if len(args) > 0 {
			if _, err := fmt.Sscanf(args[0], "%d", &count); err != nil {
				return fmt.Errorf("invalid count %q: %w", args[0], err)
			}
		}
		cards, err := policy.DrawForTurn(ctx, count, bucket)
		if err != nil {
			return err
		}
		printCards(cards)
		return nil

	case "list":
		cards, err := db.ListAll()
		if err != nil {
			return err
		}
		printCards(cards)
		return nil

	case "create":
		if len(args) == 0 {
			return fmt.Errorf("create needs a target word")
		}
		var forbidden []string
		if len(args) > 1 {
			forbidden = strings.Split(args[1], ",")
		}
		card, err := db.CreateCustomCard(storage.CustomCardInput{
			Language:   bucket.Language,
			Category:   bucket.Category,
			Difficulty: bucket.Difficulty,
			Target:     args[0],
			Forbidden:  forbidden,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%s)\n", card.Target, card.ID)
		return nil

	case "delete":
		if len(args) == 0 {
			return fmt.Errorf("delete needs a card id")
		}
		return db.DeleteCard(args[0])

	case "restore":
		if len(args) == 0 {
			return fmt.Errorf("restore needs a card id")
		}
		return db.RestoreCard(args[0])

	case "trash":
		trashed, err := db.ListTrash()
		if err != nil {
			return err
		}
		for _, tc := range trashed {
			expires := tc.DeletedAt + storage.TrashTTLSeconds
			fmt.Printf("%s  %-20s expires %s\n", tc.ID, tc.Target,
				time.Unix(expires, 0).Format(time.RFC3339))
		}
		fmt.Printf("%d cards in trash\n", len(trashed))
		return nil

	case "import":
		if len(args) == 0 {
			return fmt.Errorf("import needs a git repository URL")
		}
		n, err := gitpack.Import(db, args[0], cfg.PacksDir, log)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d cards\n", n)
		return nil

	case "watch":
		return watch(ctx, cfg, db, policy, log)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// watch performs the bootstrap sequence in its contractual order: the
// store is already open, so seed, top up once, then keep the bucket
// stocked until interrupted.
func watch(ctx context.Context, cfg config.Config, db *storage.DB, policy *replenish.Policy, log *slog.Logger) error {
	bucket := cfg.PlayBucket()

	if err := policy.EnsureSeed(bucket); err != nil {
		return err
	}
	policy.TopUpIfLow(ctx, bucket)

	tracker := session.NewTracker()
	watcher := replenish.NewWatcher(policy, tracker, bucket)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher.Start(ctx)
	log.Info("Watching bucket", "bucket", bucket)
	<-ctx.Done()

	watcher.Stop()
	log.Info("Watcher stopped")
	return nil
}

func printCards(cards []domain.Card) {
	for _, c := range cards {
		fmt.Printf("%s  %-20s [%s]\n", c.ID, c.Target, strings.Join(c.Forbidden, ", "))
	}
	fmt.Printf("%d cards\n", len(cards))
}
