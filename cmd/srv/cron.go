package main

import (
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/domain/cron"
	"github.com/patentx-lab/backend/pkg/xcontext"

	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadNotificationCaller()
	s.loadRepos()

	s.paymentCaller = client.NewPaymentCaller()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewCampaignSweepCronJob(
		s.paymentCaller,
		s.notificationCaller,
		s.crowdfundingRepo,
		s.applicationRepo,
	))

	cronJobManager.Start(s.ctx)

	return nil
}
