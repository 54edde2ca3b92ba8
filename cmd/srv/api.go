package main

import (
	"fmt"
	"net/http"

	"github.com/patentx-lab/backend/internal/middleware"
	"github.com/patentx-lab/backend/pkg/prometheus"
	"github.com/patentx-lab/backend/pkg/router"
	"github.com/patentx-lab/backend/pkg/xcontext"

	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadEthClient()
	s.loadNotificationCaller()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServer.Port),
		Handler: s.router.Handler(),
	}

	xcontext.Logger(s.ctx).Infof("Starting api server on port: %s", cfg.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}
	xcontext.Logger(s.ctx).Infof("Api server stopped")

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.AddCloser(middleware.Logger())
	s.router.AddCloser(middleware.Prometheus())
	s.router.Before(middleware.WithStartTime())
	s.router.Before(middleware.AllowCors())

	// Auth API
	authRouter := s.router.Branch()
	{
		router.GET(authRouter, "/wallet/login", s.walletAuthDomain.Login)
		router.GET(authRouter, "/wallet/verify", s.walletAuthDomain.Verify)
	}

	// These following APIs need authentication with Access Token.
	onlyTokenAuthRouter := s.router.Branch()
	authVerifier := middleware.NewAuthVerifier().WithAccessToken()
	onlyTokenAuthRouter.Before(authVerifier.Middleware())
	{
		// User API
		router.GET(onlyTokenAuthRouter, "/getMe", s.userDomain.GetMe)

		// Application API
		router.POST(onlyTokenAuthRouter, "/createApplication", s.applicationDomain.Create)
		router.POST(onlyTokenAuthRouter, "/markApplicationFiled", s.applicationDomain.MarkFiled)
		router.GET(onlyTokenAuthRouter, "/getMyApplications", s.applicationDomain.GetMyList)

		// Launchpad API
		router.POST(onlyTokenAuthRouter, "/launchNft", s.launchDomain.Launch)

		// Marketplace API
		router.POST(onlyTokenAuthRouter, "/listNft", s.marketplaceDomain.List)
		router.POST(onlyTokenAuthRouter, "/cancelListing", s.marketplaceDomain.CancelListing)
		router.POST(onlyTokenAuthRouter, "/buyNft", s.marketplaceDomain.Buy)
		router.POST(onlyTokenAuthRouter, "/placeBid", s.marketplaceDomain.PlaceBid)
		router.POST(onlyTokenAuthRouter, "/acceptOffer", s.marketplaceDomain.AcceptOffer)
		router.POST(onlyTokenAuthRouter, "/claimNft", s.marketplaceDomain.Claim)

		// Crowdfunding API
		router.POST(onlyTokenAuthRouter, "/createCampaign", s.crowdfundingDomain.CreateCampaign)
		router.POST(onlyTokenAuthRouter, "/contribute", s.crowdfundingDomain.Contribute)
	}

	// Public API.
	router.GET(s.router, "/getApplication", s.applicationDomain.Get)
	router.GET(s.router, "/getLaunchStatus", s.launchDomain.GetStatus)
	router.GET(s.router, "/getNft", s.marketplaceDomain.Get)
	router.GET(s.router, "/getCampaign", s.crowdfundingDomain.GetCampaign)

	s.router.Handle("/metrics", prometheus.NewHandler())
}
