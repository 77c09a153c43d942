package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/accord/internal/ledger"
	"github.com/ppiankov/accord/internal/stream"
	"github.com/ppiankov/accord/internal/svt"
)

var consumeLedger string

func init() {
	rootCmd.AddCommand(streamCmd)
	streamCmd.AddCommand(streamConsumeCmd)
	streamConsumeCmd.Flags().StringVar(&consumeLedger, "ledger", "", "Archive ledger path (default: ledger.path from config)")
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Event stream operations",
}

var streamConsumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Archive published SVT events into a ledger",
	Long: "Joins the configured consumer group on the SVT topic and appends every\n" +
		"event to a ledger. Events already archived are skipped, so replays\n" +
		"after a restart are harmless. Runs until interrupted.",
	RunE: runStreamConsume,
}

func runStreamConsume(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	consumer, err := stream.NewConsumer(cfg.Stream, stream.WithLogger(logger))
	if errors.Is(err, stream.ErrDisabled) {
		return fmt.Errorf("stream.brokers is empty in %s", resolvedConfigPath())
	}
	if err != nil {
		return err
	}

	path := consumeLedger
	if path == "" {
		path = cfg.Ledger.Path
	}
	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "archiving %s (group %s) into %s\n", cfg.Stream.Topic, cfg.Stream.Group, path)

	var archived, duplicate int
	err = consumer.Run(ctx, stream.HandlerFunc(func(ctx context.Context, msg *stream.Message, ev stream.Event) error {
		inserted, err := store.Append(ctx, svt.RecordFromEvent(ev))
		if err != nil {
			return err
		}
		if inserted {
			archived++
		} else {
			duplicate++
		}
		logger.Debug("event archived",
			zap.String("svt_id", ev.SvtID),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Bool("inserted", inserted))
		return nil
	}))

	fmt.Fprintf(os.Stderr, "archived %d events (%d already present)\n", archived, duplicate)
	return err
}
