package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Refresher is the part of the coordinator that fetch jobs drive.
type Refresher interface {
	FetchNetSales(ctx context.Context) error
	FetchBankExpenses(ctx context.Context) error
}

// Dispatch returns a handler that routes each fetch job to r.
func Dispatch(r Refresher, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		jobLog := log.With().
			Str("job_id", job.GetID()).
			Str("job_type", string(job.GetType())).
			Logger()

		var err error
		switch job.GetType() {
		case JobTypeFetchIncome:
			err = r.FetchNetSales(ctx)
		case JobTypeFetchBank:
			err = r.FetchBankExpenses(ctx)
		default:
			err = fmt.Errorf("unexpected job type: %s", job.GetType())
		}

		if err != nil {
			jobLog.Error().Err(err).Msg("job failed")
			return err
		}
		jobLog.Info().Msg("job completed")
		return nil
	}
}
