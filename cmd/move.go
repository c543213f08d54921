package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haulplan/haulplan/config"
	"github.com/haulplan/haulplan/core/board"
	"github.com/haulplan/haulplan/core/drag"
	"github.com/haulplan/haulplan/infra/logger"
	"github.com/haulplan/haulplan/infra/rest"
)

var (
	moveItem  string
	moveDate  string
	moveTruck string
	moveRun   string
	moveSeq   int
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a single item to a container for testing",
	RunE:  moveOne,
}

func init() {
	moveCmd.Flags().StringVar(&moveItem, "item", "", "item identifier")
	moveCmd.Flags().StringVar(&moveDate, "date", "", "destination cell date (YYYY-MM-DD)")
	moveCmd.Flags().StringVar(&moveTruck, "truck", "", "destination truck")
	moveCmd.Flags().StringVar(&moveRun, "run", "", "destination run id")
	moveCmd.Flags().IntVar(&moveSeq, "seq", 1000, "sequence value")
	_ = moveCmd.MarkFlagRequired("item")
	rootCmd.AddCommand(moveCmd)
}

// moveOne issues one batched update directly against the backend, bypassing
// the gesture pipeline. Useful to verify backend wiring and to watch the
// change echo back on every connected session's channel.
func moveOne(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("move-command")
	client := rest.New(cfg.Backend)

	change := drag.MemberChange{
		ID:        moveItem,
		Container: board.ContainerRef{Date: moveDate, Truck: moveTruck, RunID: moveRun},
		Sequence:  moveSeq,
	}
	entities, err := client.BatchUpdate(ctx, []drag.MemberChange{change})
	if err != nil {
		return fmt.Errorf("batch update: %w", err)
	}
	logg.Infof("moved %s, backend returned %d entities", moveItem, len(entities))
	return nil
}
