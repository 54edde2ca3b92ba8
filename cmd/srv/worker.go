package main

import (
	"github.com/patentx-lab/backend/internal/domain"
	"github.com/patentx-lab/backend/internal/domain/launchpad"
	"github.com/patentx-lab/backend/pkg/kafka"
	"github.com/patentx-lab/backend/pkg/xcontext"

	"github.com/urfave/cli/v2"
)

func (s *srv) startWorker(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadStorage()
	s.loadEthClient()
	s.loadNotificationCaller()
	s.loadRepos()

	preflight := launchpad.NewPreflightValidator(s.chainCaller)
	metadataBuilder := launchpad.NewMetadataBuilder(s.storage)

	s.launchWorker = launchpad.NewLaunchWorker(
		s.chainCaller,
		preflight,
		metadataBuilder,
		s.notificationCaller,
		s.applicationRepo,
		s.nftRepo,
		s.nftActivityRepo,
		s.userRepo,
		s.tagRepo,
	)
	s.rewardWorker = domain.NewRewardWorker(s.chainCaller, s.rewardIterationRepo, s.userRepo)

	cfg := xcontext.Configs(s.ctx)
	launchSubscriber := kafka.NewSubscriber(
		"launchpad",
		[]string{cfg.Kafka.Addr},
		[]string{cfg.Launch.Topic},
		s.launchWorker.Subscribe,
	)

	rewardSubscriber := kafka.NewSubscriber(
		"crowdfunding-reward",
		[]string{cfg.Kafka.Addr},
		[]string{cfg.Crowdfunding.RewardTopic},
		s.rewardWorker.Subscribe,
	)

	xcontext.Logger(s.ctx).Infof("Worker is subscribing to %s and %s",
		cfg.Launch.Topic, cfg.Crowdfunding.RewardTopic)

	go launchSubscriber.Subscribe(s.ctx)
	rewardSubscriber.Subscribe(s.ctx)

	return nil
}
