package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/villaops/dispatchd/app"
	"github.com/villaops/dispatchd/config"
	"github.com/villaops/dispatchd/core/dispatch"
	"github.com/villaops/dispatchd/core/model"
	"github.com/villaops/dispatchd/infra/logger"
)

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Inject a test job and run one offer cycle",
	RunE:  injectOffer,
}

func init() {
	rootCmd.AddCommand(offerCmd)
}

func injectOffer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	logg := logger.New("offer-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	now := time.Now().UTC()
	job := model.Job{
		ID:             uuid.NewString(),
		Type:           model.JobCleaning,
		Status:         model.JobPending,
		Priority:       model.PriorityHigh,
		PropertyID:     "test-villa",
		RequiredRole:   "housekeeper",
		ScheduledStart: now.Add(4 * time.Hour),
		ScheduledEnd:   now.Add(6 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := svc.Store.PutJob(ctx, job); err != nil {
		return fmt.Errorf("store test job: %w", err)
	}

	res := svc.Orchestrator.TriggerOfferCreationForNewJob(ctx, job)
	switch res.Outcome {
	case dispatch.OutcomeCreated:
		logg.Infof("offer %s created for job %s", res.OfferID, job.ID)
	case dispatch.OutcomeSkipped:
		logg.Warnf("offer skipped: %s", res.Reason)
	case dispatch.OutcomeFailed:
		return fmt.Errorf("offer creation failed: %w", res.Err)
	}
	return nil
}
