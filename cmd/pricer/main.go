package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"max.com/optpricing/pkg/kafka"
	"max.com/optpricing/pkg/marketdata"
	"max.com/optpricing/pkg/nats"
	"max.com/optpricing/pkg/options"
	"max.com/optpricing/pkg/valuation"
)

// =============================================================================
// 参考算例
// =============================================================================

// S0=42, K=40, r=10%, σ=20%, T=0.5
const (
	refSpot   = 42.0
	refStrike = 40.0
	refRate   = 0.10
	refSigma  = 0.20
	refExpiry = 0.5
)

func runReference() error {
	u, err := options.NewSymbolUnderlying("REF", refSpot, refSigma, 0)
	if err != nil {
		return err
	}
	model := options.NewPricingModel(time.Now(), refRate)

	for _, typ := range []options.OptionType{options.Call, options.Put} {
		opt, err := options.NewFinancialOption(u, refStrike, refExpiry, typ, options.European)
		if err != nil {
			return err
		}
		res, err := model.Evaluate(opt)
		if err != nil {
			return err
		}
		fmt.Printf("%-4s price=%.4f delta=%.4f gamma=%.4f theta=%.4f vega=%.4f rho=%.4f\n",
			typ, res.Price, res.Delta, res.Gamma, res.Theta, res.Vega, res.Rho)

		parity, err := model.CalcParityPrice(opt, res.Price)
		if err != nil {
			return err
		}
		twin := opt.Twin()
		twinPrice := mustPrice(model, twin)
		fmt.Printf("     parity %s=%.4f (model %.4f, diff %.2e)\n",
			twin.Type(), parity, twinPrice, math.Abs(parity-twinPrice))
	}

	american, err := options.NewFinancialOption(u, refStrike, refExpiry, options.Call, options.American)
	if err != nil {
		return err
	}
	if _, err := model.CalcModelPrice(american); errors.Is(err, options.ErrUnsupportedStyle) {
		fmt.Printf("AMERICAN CALL rejected: %v\n", err)
	} else {
		return fmt.Errorf("american option was not rejected: %v", err)
	}
	return nil
}

func mustPrice(model *options.PricingModel, opt *options.FinancialOption) float64 {
	p, err := model.CalcModelPrice(opt)
	if err != nil {
		return math.NaN()
	}
	return p
}

// =============================================================================
// 服务
// =============================================================================

// stack 已连接的外部依赖，按创建逆序关闭
type stack struct {
	closers []func() error
}

func (s *stack) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("[Pricer] close error: %v", err)
		}
	}
}

func buildService(cfg Config, st *stack) (*valuation.Service, error) {
	var (
		snapshots marketdata.SnapshotRepository = marketdata.NewMemorySnapshotRepository()
		repo      valuation.Repository
		pubs      valuation.MultiPublisher
	)

	// 1. MySQL: 行情快照 + 估值记录
	if cfg.MySQLDSN != "" {
		db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			st.onClose(sqlDB.Close)
		}
		snapRepo := marketdata.NewMySQLSnapshotRepository(db)
		valRepo := valuation.NewMySQLRepository(db)
		if err := snapRepo.AutoMigrate(); err != nil {
			return nil, err
		}
		if err := valRepo.AutoMigrate(); err != nil {
			return nil, err
		}
		snapshots, repo = snapRepo, valRepo
		log.Println("[Pricer] ✅ MySQL connected")
	} else {
		// 单机模式: 预置参考标的
		if err := snapshots.Save(context.Background(), &marketdata.Snapshot{
			Symbol: "REF", SpotPrice: refSpot, Sigma: refSigma, Source: "builtin",
		}); err != nil {
			return nil, err
		}
	}

	// 2. Redis: 行情缓存
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.onClose(rdb.Close)
		snapshots = marketdata.NewCachedSnapshotRepository(snapshots, rdb, marketdata.DefaultCacheTTL)
		log.Println("[Pricer] ✅ Redis cache enabled")
	}

	// 3. Kafka: 估值事件流
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.KafkaBrokers))
		if err != nil {
			return nil, err
		}
		st.onClose(producer.Close)
		pubs = append(pubs, valuation.NewKafkaEventPublisher(producer))
		log.Printf("[Pricer] ✅ Kafka producer ready: %v", cfg.KafkaBrokers)
	}

	// 4. NATS: 估值广播
	if cfg.NatsURL != "" {
		publisher, err := nats.NewPublisher(cfg.NatsURL, "pricer-events")
		if err != nil {
			return nil, err
		}
		st.onClose(func() error { publisher.Close(); return nil })
		pubs = append(pubs, valuation.NewNatsEventPublisher(publisher))
		log.Printf("[Pricer] ✅ NATS publisher ready: %s", cfg.NatsURL)
	}

	svcCfg := valuation.DefaultServiceConfig()
	svcCfg.RiskFreeRate = cfg.RiskFreeRate
	svcCfg.NodeID = cfg.NodeID

	var publisher valuation.EventPublisher
	if len(pubs) > 0 {
		publisher = pubs
	}
	return valuation.NewService(svcCfg, snapshots, repo, publisher)
}

func serve(ctx context.Context, cfg Config) error {
	st := &stack{}
	defer st.Close()

	svc, err := buildService(cfg, st)
	if err != nil {
		return err
	}

	if cfg.NatsURL != "" {
		responder, err := valuation.NewNatsResponder(svc, cfg.NatsURL, 5*time.Second)
		if err != nil {
			return err
		}
		if err := responder.Start(); err != nil {
			return err
		}
		st.onClose(responder.Stop)
		log.Printf("[Pricer] 🚀 serving %s (queue=%s)", valuation.SubjectPricingRequest, valuation.QueueGroup)
	}

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := valuation.NewKafkaRequestConsumer(svc, cfg.KafkaBrokers, cfg.KafkaGroup)
		if err != nil {
			return err
		}
		consumer.Start(ctx)
		st.onClose(consumer.Stop)
		log.Printf("[Pricer] 🚀 consuming %s (group=%s)", valuation.TopicPricingRequests, cfg.KafkaGroup)
	}

	<-ctx.Done()
	log.Println("[Pricer] 🛑 Shutting down...")
	return nil
}

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("[Pricer] load config: %v", err)
	}

	if err := runReference(); err != nil {
		log.Fatalf("[Pricer] reference scenario failed: %v", err)
	}

	if !cfg.Serving() {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		log.Fatalf("[Pricer] %v", err)
	}
}
