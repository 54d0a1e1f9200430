package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/auth"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/logging"
)

type SimConfig struct {
	APIBaseURL    string
	Date          string // YYYY-MM-DD in the clinic timezone
	Professionals int    // how many professionals to target
	Contenders    int    // concurrent bookings per slot
	JWTSecret     string // enables the server side check when set
	Timeout       time.Duration
}

// target is one open slot everyone races for.
type target struct {
	ProfessionalID uuid.UUID
	Time           string // HH:mm
	winners        atomic.Int64
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Throttled int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status == http.StatusTooManyRequests:
		atomic.AddInt64(&om.Throttled, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	log     zerolog.Logger
	targets []*target
	booking OperationMetrics
}

func main() {
	cfg := loadConfig()
	logger := logging.New("dev", "info").With().Str("service", "simulate").Logger()

	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Str("api", cfg.APIBaseURL).
		Str("date", cfg.Date).
		Int("professionals", cfg.Professionals).
		Int("contenders", cfg.Contenders).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}

	ctx := context.Background()
	if err := sim.loadTargets(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load targets")
	}
	logger.Info().Int("slots", len(sim.targets)).Msg("open slots loaded")

	sim.Run(ctx)

	violations := sim.Verify(ctx)
	sim.PrintReport(violations)
	if len(violations) > 0 {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SIM_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("SIM_DATE", nextWeekday(time.Now()).Format(time.DateOnly))
	v.SetDefault("SIM_PROFESSIONALS", 5)
	v.SetDefault("SIM_CONTENDERS", 20)
	v.SetDefault("SIM_TIMEOUT", "10s")

	return SimConfig{
		APIBaseURL:    strings.TrimRight(v.GetString("SIM_API_BASE_URL"), "/"),
		Date:          v.GetString("SIM_DATE"),
		Professionals: v.GetInt("SIM_PROFESSIONALS"),
		Contenders:    v.GetInt("SIM_CONTENDERS"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		Timeout:       v.GetDuration("SIM_TIMEOUT"),
	}
}

func validateConfig(cfg SimConfig) error {
	if _, err := time.Parse(time.DateOnly, cfg.Date); err != nil {
		return fmt.Errorf("SIM_DATE must be YYYY-MM-DD: %w", err)
	}
	if cfg.Professionals <= 0 {
		return fmt.Errorf("SIM_PROFESSIONALS must be > 0")
	}
	if cfg.Contenders <= 1 {
		return fmt.Errorf("SIM_CONTENDERS must be > 1 to produce a race")
	}
	return nil
}

func nextWeekday(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (s *Simulator) loadTargets(ctx context.Context) error {
	var professionals []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := s.getJSON(ctx, "/professionals", "", &professionals); err != nil {
		return fmt.Errorf("list professionals: %w", err)
	}

	if len(professionals) > s.config.Professionals {
		professionals = professionals[:s.config.Professionals]
	}

	for _, p := range professionals {
		slots, err := s.availability(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, hhmm := range slots {
			s.targets = append(s.targets, &target{ProfessionalID: p.ID, Time: hhmm})
		}
	}

	if len(s.targets) == 0 {
		return fmt.Errorf("no open slots on %s", s.config.Date)
	}
	return nil
}

func (s *Simulator) availability(ctx context.Context, professionalID uuid.UUID) ([]string, error) {
	q := url.Values{}
	q.Set("date", s.config.Date)
	q.Set("professionalId", professionalID.String())

	var slots []string
	if err := s.getJSON(ctx, "/availability?"+q.Encode(), "", &slots); err != nil {
		return nil, fmt.Errorf("availability for %s: %w", professionalID, err)
	}
	return slots, nil
}

// Run fires Contenders bookings at every target at once.
func (s *Simulator) Run(ctx context.Context) {
	start := time.Now()

	var wg sync.WaitGroup
	gate := make(chan struct{})

	for _, t := range s.targets {
		for i := 0; i < s.config.Contenders; i++ {
			wg.Add(1)
			go func(t *target) {
				defer wg.Done()
				<-gate
				s.book(ctx, t)
			}(t)
		}
	}

	close(gate)
	wg.Wait()

	s.log.Info().Dur("elapsed", time.Since(start)).Msg("race complete")
}

func (s *Simulator) book(ctx context.Context, t *target) {
	body, _ := json.Marshal(map[string]any{
		"professionalId": t.ProfessionalID.String(),
		"dateTime":       s.config.Date + "T" + t.Time,
		"patientDetails": map[string]any{
			"dni":       gofakeit.Numerify("9#######"),
			"firstName": gofakeit.FirstName(),
			"lastName":  gofakeit.LastName(),
			"email":     gofakeit.Email(),
			"phone":     gofakeit.Phone(),
		},
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		s.booking.Record(0, 0, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.booking.Record(latency, 0, err)
		return
	}
	resp.Body.Close()

	s.booking.Record(latency, resp.StatusCode, nil)
	if resp.StatusCode == http.StatusCreated {
		t.winners.Add(1)
	}
}

// Verify checks that every raced slot has exactly one winner, that it no
// longer shows as available and, with a JWT secret, that the server stores
// exactly one active appointment for it.
func (s *Simulator) Verify(ctx context.Context) []string {
	var violations []string

	byProfessional := map[uuid.UUID][]*target{}
	for _, t := range s.targets {
		byProfessional[t.ProfessionalID] = append(byProfessional[t.ProfessionalID], t)
		if w := t.winners.Load(); w > 1 {
			violations = append(violations, fmt.Sprintf("%s %s: %d bookings succeeded", t.ProfessionalID, t.Time, w))
		}
	}

	var token string
	if s.config.JWTSecret != "" {
		var err error
		token, err = auth.IssueToken(s.config.JWTSecret, auth.Identity{UserID: uuid.New(), Role: auth.RoleAdmin}, time.Hour)
		if err != nil {
			s.log.Warn().Err(err).Msg("cannot sign admin token, skipping server side check")
		}
	}

	for pid, targets := range byProfessional {
		open, err := s.availability(ctx, pid)
		if err != nil {
			violations = append(violations, err.Error())
			continue
		}
		stillOpen := map[string]bool{}
		for _, hhmm := range open {
			stillOpen[hhmm] = true
		}
		for _, t := range targets {
			if t.winners.Load() == 1 && stillOpen[t.Time] {
				violations = append(violations, fmt.Sprintf("%s %s: booked but still offered", pid, t.Time))
			}
		}

		if token != "" {
			violations = append(violations, s.verifyStored(ctx, token, pid)...)
		}
	}

	return violations
}

func (s *Simulator) verifyStored(ctx context.Context, token string, professionalID uuid.UUID) []string {
	q := url.Values{}
	q.Set("professionalId", professionalID.String())
	q.Set("from", s.config.Date)
	q.Set("to", s.config.Date)
	q.Set("limit", "500")

	var list []struct {
		DateTime time.Time `json:"dateTime"`
		Status   string    `json:"status"`
	}
	if err := s.getJSON(ctx, "/appointments?"+q.Encode(), token, &list); err != nil {
		return []string{fmt.Sprintf("list appointments for %s: %v", professionalID, err)}
	}

	var violations []string
	seen := map[int64]int{}
	for _, a := range list {
		if strings.HasPrefix(a.Status, "CANCELED") {
			continue
		}
		seen[a.DateTime.Unix()]++
		if seen[a.DateTime.Unix()] == 2 {
			violations = append(violations, fmt.Sprintf("%s %s: stored more than once", professionalID, a.DateTime))
		}
	}
	return violations
}

func (s *Simulator) getJSON(ctx context.Context, path, token string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (s *Simulator) PrintReport(violations []string) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Date: %s\n", s.config.Date)
	fmt.Printf("Slots raced: %d\n", len(s.targets))
	fmt.Printf("Contenders per slot: %d\n", s.config.Contenders)
	fmt.Println()

	printOperationReport("Booking", &s.booking)

	won := 0
	for _, t := range s.targets {
		if t.winners.Load() == 1 {
			won++
		}
	}
	fmt.Printf("Slots won exactly once: %d/%d\n", won, len(s.targets))

	if len(violations) == 0 {
		fmt.Println("No double bookings detected.")
		return
	}
	fmt.Printf("VIOLATIONS (%d):\n", len(violations))
	for _, v := range violations {
		fmt.Printf("  - %s\n", v)
	}
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	throttled := atomic.LoadInt64(&om.Throttled)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if throttled > 0 {
		fmt.Printf("  Throttled: %d (%.1f%%)\n", throttled, float64(throttled)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
