package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/idiomchain/assets"
	"github.com/robalobadob/idiomchain/internal/bot"
	"github.com/robalobadob/idiomchain/internal/config"
	"github.com/robalobadob/idiomchain/internal/contrib"
	"github.com/robalobadob/idiomchain/internal/dictionary"
	"github.com/robalobadob/idiomchain/internal/game"
	"github.com/robalobadob/idiomchain/internal/httpserver"
	"github.com/robalobadob/idiomchain/internal/ledger"
	"github.com/robalobadob/idiomchain/internal/notify"
	"github.com/robalobadob/idiomchain/internal/phonetic"
	"github.com/robalobadob/idiomchain/internal/sqlstore"
	"github.com/robalobadob/idiomchain/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()
	if err := sqlstore.Migrate(ctx, db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	persist := sqlstore.New(db)

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := dictionary.NewRand(seed)
	log.Debug().Uint64("seed", seed).Msg("random source ready")

	dict := dictionary.Open(ctx, dictionary.LoadCurated(cfg.CuratedCorpusFile), persist, rng)
	scores := ledger.Open(ctx, persist)
	overrides, err := phonetic.ParseTable(cfg.PinyinOverrides)
	if err != nil {
		log.Fatal().Err(err).Msg("PINYIN_OVERRIDES")
	}
	wf := contrib.Open(ctx, dict, phonetic.Chain{overrides, phonetic.NewPinyin()}, persist)
	games := game.NewManager(dict, scores, store.NewMemory(), rng)

	pubs := notify.Fanout{notify.Log{}}
	if cfg.RedisURL != "" {
		r, err := notify.NewRedis(ctx, cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			log.Warn().Err(err).Msg("redis publisher disabled")
		} else {
			defer r.Close()
			pubs = append(pubs, r)
		}
	}
	switch {
	case cfg.ModeratorID == "":
		log.Warn().Msg("MODERATOR_ID not set; contributions can be queued but not decided")
	case !cfg.ModerationEnabled():
		log.Warn().Msg("moderator login disabled; set MODERATOR_PASSWORD_HASH and JWT_SECRET")
	}

	srv := httpserver.New(httpserver.Deps{
		Bot:     bot.New(games, wf, cfg.ModeratorID, pubs),
		Games:   games,
		Dict:    dict,
		Ledger:  scores,
		Contrib: wf,
	}, httpserver.Auth{
		ModeratorID:           cfg.ModeratorID,
		ModeratorPasswordHash: cfg.ModeratorPasswordHash,
		JWTSecret:             cfg.JWTSecret,
		JWTExpires:            time.Duration(cfg.JWTExpiresDays) * 24 * time.Hour,
	}, cfg.ClientOrigin)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("starting idiomchain server")
		if err := srv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
