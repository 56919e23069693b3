package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// The simulator drives a running api-server: each round a provider opens
// one slot and many clients race to book it. Exactly one booking per round
// must win; anything else is reported as a double booking.

type SimConfig struct {
	APIBaseURL  string
	Rounds      int
	Contenders  int
	HTTPTimeout time.Duration
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	pick := func(pct int) time.Duration {
		return latencies[min(len(latencies)*pct/100, len(latencies)-1)]
	}
	return sum / time.Duration(len(latencies)), pick(50), pick(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Booking OperationMetrics
	Cancel  OperationMetrics
	Rebook  OperationMetrics
}

type account struct {
	ID    uuid.UUID
	Token string
}

type Simulator struct {
	config        SimConfig
	client        *http.Client
	metrics       Metrics
	doubleBooked  int64
	failedRebooks int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.Printf("config: api=%s rounds=%d contenders=%d", cfg.APIBaseURL, cfg.Rounds, cfg.Contenders)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}

	ctx := context.Background()

	provider, err := sim.signUp(ctx, "provider")
	if err != nil {
		log.Fatalf("register provider: %v", err)
	}

	clients := make([]account, cfg.Contenders)
	for i := range clients {
		if clients[i], err = sim.signUp(ctx, "user"); err != nil {
			log.Fatalf("register client %d: %v", i, err)
		}
	}
	log.Printf("registered provider %s and %d clients", provider.ID, len(clients))

	for round := 0; round < cfg.Rounds; round++ {
		if err := sim.runRound(ctx, round, provider, clients); err != nil {
			log.Printf("round %d aborted: %v", round, err)
		}
	}

	sim.PrintReport()
	if sim.doubleBooked > 0 || sim.failedRebooks > 0 {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL:  strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Rounds:      getInt("SIM_ROUNDS", 20),
		Contenders:  getInt("SIM_CONTENDERS", 25),
		HTTPTimeout: getDuration("SIM_HTTP_TIMEOUT", 10*time.Second),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Rounds <= 0 {
		return fmt.Errorf("SIM_ROUNDS must be > 0")
	}
	if cfg.Contenders < 2 {
		return fmt.Errorf("SIM_CONTENDERS must be >= 2")
	}
	return nil
}

func (s *Simulator) runRound(ctx context.Context, round int, provider account, clients []account) error {
	day := time.Now().UTC().AddDate(0, 0, 1+round/40)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Add(time.Duration(round%40) * 15 * time.Minute)

	var created struct {
		TimeSlot struct {
			ID uuid.UUID `json:"id"`
		} `json:"timeSlot"`
	}
	status, err := s.call(ctx, http.MethodPost, "/time-slot/create", provider.Token, map[string]string{
		"date":       start.Format("2006-01-02"),
		"start_time": start.Format("15:04"),
		"end_time":   start.Add(15 * time.Minute).Format("15:04"),
	}, &created)
	if err != nil || status != http.StatusCreated {
		return fmt.Errorf("create slot: status=%d err=%v", status, err)
	}
	slotID := created.TimeSlot.ID

	winners := make(chan uuid.UUID, len(clients))
	var wg sync.WaitGroup
	gate := make(chan struct{})

	for _, c := range clients {
		wg.Add(1)
		go func(c account) {
			defer wg.Done()
			<-gate

			var booked struct {
				Appointment struct {
					ID uuid.UUID `json:"id"`
				} `json:"appointment"`
			}
			begin := time.Now()
			status, _ := s.book(ctx, c, slotID, provider.ID, &booked)
			s.metrics.Booking.Record(time.Since(begin), status)
			if status == http.StatusCreated {
				winners <- booked.Appointment.ID
			}
		}(c)
	}

	close(gate)
	wg.Wait()
	close(winners)

	var won []uuid.UUID
	for id := range winners {
		won = append(won, id)
	}
	if len(won) != 1 {
		atomic.AddInt64(&s.doubleBooked, 1)
		return fmt.Errorf("slot %s: %d successful bookings", slotID, len(won))
	}

	// the winner's provider cancels, then a client must be able to take the slot again
	begin := time.Now()
	status, err = s.call(ctx, http.MethodPatch, "/appointments/"+won[0].String()+"/cancel", provider.Token, nil, nil)
	s.metrics.Cancel.Record(time.Since(begin), status)
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("cancel: status=%d err=%v", status, err)
	}

	begin = time.Now()
	status, err = s.book(ctx, clients[round%len(clients)], slotID, provider.ID, nil)
	s.metrics.Rebook.Record(time.Since(begin), status)
	if status != http.StatusCreated {
		atomic.AddInt64(&s.failedRebooks, 1)
		return fmt.Errorf("rebook after cancel: status=%d err=%v", status, err)
	}
	return nil
}

func (s *Simulator) book(ctx context.Context, c account, slotID, providerID uuid.UUID, out any) (int, error) {
	return s.call(ctx, http.MethodPost, "/appointments/book", c.Token, map[string]string{
		"slotId":     slotID.String(),
		"providerId": providerID.String(),
	}, out)
}

func (s *Simulator) signUp(ctx context.Context, role string) (account, error) {
	email := strings.ToLower(fmt.Sprintf("%s.%s@%s", gofakeit.Username(), uuid.NewString()[:8], "example.com"))
	password := "Sim_" + strconv.Itoa(gofakeit.Number(1000, 9999))

	status, err := s.call(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"firstName":       padName(gofakeit.FirstName()),
		"lastName":        padName(gofakeit.LastName()),
		"email":           email,
		"password":        password,
		"confirmPassword": password,
		"role":            role,
		"serviceType":     gofakeit.JobTitle(),
	}, nil)
	if err != nil || status != http.StatusCreated {
		return account{}, fmt.Errorf("register: status=%d err=%v", status, err)
	}

	var login struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	status, err = s.call(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &login)
	if err != nil || status != http.StatusOK {
		return account{}, fmt.Errorf("login: status=%d err=%v", status, err)
	}

	return account{ID: login.User.ID, Token: login.Token}, nil
}

// padName keeps generated names inside the 3..30 rule.
func padName(n string) string {
	for len(n) < 3 {
		n += "x"
	}
	if len(n) > 30 {
		n = n[:30]
	}
	return n
}

// call sends one JSON request. Register and login are rate limited, so a
// 429 is retried after a short pause.
func (s *Simulator) call(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return 0, err
		}
	}

	for attempt := 0; ; attempt++ {
		status, err := s.send(ctx, method, path, token, data, out)
		if status != http.StatusTooManyRequests || attempt >= 20 {
			return status, err
		}
		time.Sleep(300 * time.Millisecond)
	}
}

func (s *Simulator) send(ctx context.Context, method, path, token string, data []byte, out any) (int, error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Rounds: %d  Contenders per slot: %d\n", s.config.Rounds, s.config.Contenders)
	fmt.Printf("Rounds with a double booking: %d\n", atomic.LoadInt64(&s.doubleBooked))
	fmt.Printf("Failed re-bookings after cancel: %d\n\n", atomic.LoadInt64(&s.failedRebooks))

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Re-book", &s.metrics.Rebook)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
