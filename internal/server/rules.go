package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zabbix/zabbix-sub156/internal/rules"
	"github.com/zabbix/zabbix-sub156/internal/store"
	"github.com/zabbix/zabbix-sub156/pkg/regexprule"
)

// LoadRulesFromDir loads every rule file under dir, builds its expression
// and saves it. Files that do not decode and rules that do not build are
// skipped.
// Returns (loaded_count, skipped_count, error).
func (s *AppServer) LoadRulesFromDir(ctx context.Context, dir string) (int, int, error) {
	rs, bad, err := rules.LoadDirSkipInvalid(dir)
	if err != nil {
		return 0, len(bad), fmt.Errorf("walk dir: %w", err)
	}
	for _, fe := range bad {
		s.logger.Warn("skipping rule file", slog.String("path", fe.Path), slog.Any("error", fe.Err))
	}
	loaded, skipped, err := s.UpsertRules(ctx, rs)
	return loaded, skipped + len(bad), err
}

// UpsertRules builds and stores each rule. A rule carrying a test string is
// also run through the regexp tester and a verdict mismatch is logged.
func (s *AppServer) UpsertRules(ctx context.Context, rs []regexprule.Rule) (int, int, error) {
	loaded, skipped := 0, 0
	for _, r := range rs {
		log := s.logger.With(slog.String("rule", r.Name))

		expr, err := s.builder.Build(r.Host, r.Key, r.Fragments())
		if err != nil {
			log.Warn("skipping rule", slog.Any("error", err))
			skipped++
			continue
		}
		id, err := s.store.Save(ctx, store.Record{Host: r.Host, Key: r.Key, Expression: expr, Source: "rule:" + r.Name})
		if err != nil {
			return loaded, skipped, fmt.Errorf("save rule %s: %w", r.Name, err)
		}
		loaded++
		log.Debug("rule saved", slog.Int64("id", id), slog.String("expression", expr))

		if !r.HasTest() {
			continue
		}
		res, err := s.tester.Run(r.Host, r.Key, r.Fragments(), r.TestString)
		if err != nil {
			log.Warn("rule test failed", slog.Any("error", err))
			continue
		}
		if r.Expect != nil && *r.Expect != res.Result {
			log.Warn("rule test verdict differs", slog.Bool("expected", *r.Expect), slog.Bool("got", res.Result))
		}
	}
	s.logger.Info("rules loaded", slog.Int("loaded", loaded), slog.Int("skipped", skipped))
	return loaded, skipped, nil
}
