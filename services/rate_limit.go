package services

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/minevote/api/dto"
	"github.com/minevote/api/shared"
	log "github.com/sirupsen/logrus"
)

// RateLimitService is the transport-layer abuse guard: a fixed-window
// counter per (action, client identifier). The vote action's 1-per-24h
// ceiling is the first line of defense against duplicate voting and runs
// before any database access; the per-player business rule lives in the
// vote service.
type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	store    limiterStore
	redisSvc *RedisService
	monitor  *MonitoringService

	done chan struct{}
}

type RateLimitConfig struct {
	Action      string
	MaxRequests int
	Window      time.Duration
	Message     string
}

const RATE_LIMIT_SVC = "rate_limit_svc"

const (
	ActionVote       = "vote"
	ActionAPI        = "api"
	ActionSearch     = "search"
	ActionPing       = "ping"
	ActionAdminLogin = "admin_login"
)

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.configs = defaultRateLimitConfigs()
	svc.done = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.monitor = svc.Service(MONITORING_SVC).(*MonitoringService)

	if svc.redisSvc.Enabled() {
		svc.store = &redisLimiterStore{redis: svc.redisSvc}
		log.Println("Rate limiter using redis store")
	} else {
		mem := newMemoryLimiterStore()
		svc.store = mem
		go mem.sweepLoop(svc.done)
		log.Println("Rate limiter using in-memory store")
	}

	return nil
}

func (svc *RateLimitService) Shutdown() {
	close(svc.done)
}

func defaultRateLimitConfigs() map[string]*RateLimitConfig {
	return map[string]*RateLimitConfig{
		ActionVote: {
			Action:      ActionVote,
			MaxRequests: 1,
			Window:      24 * time.Hour,
			Message:     "Only 1 vote per day allowed",
		},
		ActionAPI: {
			Action:      ActionAPI,
			MaxRequests: 100,
			Window:      time.Minute,
			Message:     "Too many requests",
		},
		ActionSearch: {
			Action:      ActionSearch,
			MaxRequests: 30,
			Window:      time.Minute,
			Message:     "Search rate limit exceeded",
		},
		ActionPing: {
			Action:      ActionPing,
			MaxRequests: 10,
			Window:      time.Minute,
			Message:     "Too many ping requests",
		},
		ActionAdminLogin: {
			Action:      ActionAdminLogin,
			MaxRequests: 5,
			Window:      15 * time.Minute,
			Message:     "Too many login attempts. Please try again later.",
		},
	}
}

// ==================== CORE RATE LIMITING LOGIC ====================

// Check records one request against the (action, identifier) window and
// returns the verdict. A missing config allows the request; missing history
// always means "no history" and is a safe default.
func (svc *RateLimitService) Check(ctx context.Context, action, identifier string) (*dto.RateLimitInfo, error) {
	svc.mutex.RLock()
	config, exists := svc.configs[action]
	svc.mutex.RUnlock()

	if !exists {
		return &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", action, identifier)

	count, ttl, err := svc.store.Incr(ctx, key, config.Window)
	if err != nil {
		return nil, err
	}

	resetTime := time.Now().Add(ttl)
	info := &dto.RateLimitInfo{
		Allowed:   count <= int64(config.MaxRequests),
		Limit:     config.MaxRequests,
		Remaining: config.MaxRequests - int(count),
		ResetTime: &resetTime,
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return info, nil
}

// Reset clears the window for one (action, identifier) pair. Administrative
// use only.
func (svc *RateLimitService) Reset(ctx context.Context, action, identifier string) error {
	key := fmt.Sprintf("ratelimit:%s:%s", action, identifier)
	return svc.store.Reset(ctx, key)
}

func (svc *RateLimitService) Config(action string) (*RateLimitConfig, bool) {
	svc.mutex.RLock()
	defer svc.mutex.RUnlock()
	config, ok := svc.configs[action]
	return config, ok
}

func (svc *RateLimitService) UpdateConfig(action string, maxRequests int, window time.Duration) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	if config, ok := svc.configs[action]; ok {
		if maxRequests > 0 {
			config.MaxRequests = maxRequests
		}
		if window > 0 {
			config.Window = window
		}
	}
}

// ==================== MIDDLEWARE ====================

// Limit builds a fiber middleware guarding one action type. Limiter store
// failures fail open so a degraded store never takes voting down with it.
func (svc *RateLimitService) Limit(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := GetClientIP(c)

		info, err := svc.Check(c.UserContext(), action, identifier)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"action":     action,
				"identifier": identifier,
			}).Warn("Rate limit check failed, allowing request")
			return c.Next()
		}

		svc.addRateLimitHeaders(c, info)

		if !info.Allowed {
			return svc.handleRateLimitExceeded(c, action, info)
		}

		return c.Next()
	}
}

func (svc *RateLimitService) addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil {
		return
	}

	c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))

	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		if !info.Allowed {
			retryAfter := int(time.Until(*info.ResetTime).Seconds())
			if retryAfter > 0 {
				c.Set("Retry-After", strconv.Itoa(retryAfter))
			}
		}
	}
}

func (svc *RateLimitService) handleRateLimitExceeded(c *fiber.Ctx, action string, info *dto.RateLimitInfo) error {
	svc.monitor.RateLimitDenied(action)

	message := "Too many requests. Please try again later."
	if config, ok := svc.Config(action); ok {
		message = config.Message
	}

	retryAfter := 0
	if info.ResetTime != nil {
		retryAfter = int(time.Until(*info.ResetTime).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
	}

	return shared.ResponseJSON(c, fiber.StatusTooManyRequests, message, dto.VoteRejection{
		Reason:     "rate_limited",
		RetryAfter: retryAfter,
	})
}

// GetClientIP resolves the client identity for limiter keys: first hop of
// X-Forwarded-For, then X-Real-IP, then CF-Connecting-IP, then the remote
// address, then a literal "unknown".
func GetClientIP(c *fiber.Ctx) string {
	forwarded := c.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if ip != "" {
				return ip
			}
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	remote := c.Context().RemoteAddr().String()
	ip, _, err := net.SplitHostPort(remote)
	if err != nil {
		if remote != "" {
			return remote
		}
		return "unknown"
	}
	if ip == "" {
		return "unknown"
	}
	return ip
}

// ==================== STORES ====================

// limiterStore is the keyed counter behind the guard. Incr bumps the key and
// returns the post-increment count plus the time left in the window; the
// first hit of a window starts it.
type limiterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// redisLimiterStore uses INCR plus EXPIRE-on-first-hit, so the counter and
// its window live entirely in redis and are shared across instances.
type redisLimiterStore struct {
	redis *RedisService
}

func (s *redisLimiterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.redis.Increment(ctx, key)
	if err != nil {
		return 0, 0, err
	}

	if count == 1 {
		if err := s.redis.Expire(ctx, key, window); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := s.redis.TTL(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// Expire was lost (crash between INCR and EXPIRE); re-arm the window
		// rather than leaving an immortal counter.
		if err := s.redis.Expire(ctx, key, window); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

func (s *redisLimiterStore) Reset(ctx context.Context, key string) error {
	return s.redis.Delete(ctx, key)
}

// memoryLimiterStore is the single-instance fallback: a mutex-guarded map
// with a periodic sweep of expired entries.
type memoryLimiterStore struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	count     int64
	expiresAt time.Time
}

func newMemoryLimiterStore() *memoryLimiterStore {
	return &memoryLimiterStore{entries: make(map[string]*limiterEntry)}
}

func (s *memoryLimiterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &limiterEntry{count: 1, expiresAt: now.Add(window)}
		s.entries[key] = entry
		return 1, window, nil
	}

	entry.count++
	return entry.count, entry.expiresAt.Sub(now), nil
}

func (s *memoryLimiterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryLimiterStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func (s *memoryLimiterStore) sweepLoop(done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-done:
			return
		}
	}
}
