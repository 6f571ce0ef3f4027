package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
	"github.com/AlekseyZapadovnikov/code-review/internal/web"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign reviewers to work items waiting for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("assigner", func(a *app) web.Job {
			if j := a.assignJob(); j != nil {
				return j
			}
			return nil
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report orphaned revisions and work items to be reviewed again",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("checker", func(a *app) web.Job {
			if j := a.checkJob(); j != nil {
				return j
			}
			return nil
		})
	},
}

// runJob выполняет одну джобу, печатает статус и возвращает ошибку для неуспешного статуса.
func runJob(name string, pick func(*app) web.Job) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	job := pick(a)
	if job == nil {
		return errors.New(name + " is not configured")
	}

	status := job.Run(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		return err
	}
	if status.State != models.JobStateOK {
		return fmt.Errorf("%s %s: %s", name, status.State, status.Message)
	}
	return nil
}
