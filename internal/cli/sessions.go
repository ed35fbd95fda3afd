package cli

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"torrents/internal/store"
)

var purgeSessionsCmd = &cobra.Command{
	Use:   "purge-sessions",
	Short: "Delete expired login sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.PurgeExpired(ctx, store.Now())
		if err != nil {
			return err
		}
		log.WithField("purged", n).Info("expired sessions removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeSessionsCmd)
}

// purgeLoop drops expired sessions every interval until ctx is done.
func purgeLoop(ctx context.Context, sessions store.SessionRepository, interval time.Duration, log *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx, store.Now())
			if err != nil {
				log.WithError(err).Warn("purging sessions")
				continue
			}
			if n > 0 {
				log.WithField("purged", n).Debug("expired sessions removed")
			}
		}
	}
}
