package authz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/packbazaar/bazaar/pkg/observability"
)

// rulesFile is the on-disk shape of a policy file
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule table from a YAML file
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, rule := range file.Rules {
		if rule.Operation == "" {
			return nil, fmt.Errorf("rule %d: operation is required", i)
		}
		if rule.Effect != EffectAllow && rule.Effect != EffectDeny {
			return nil, fmt.Errorf("rule %d: effect must be allow or deny, got %q", i, rule.Effect)
		}
	}

	return file.Rules, nil
}

// WatchRules reloads the gate's rule table whenever the policy file
// changes. It blocks until the context is cancelled, so callers run it in
// its own goroutine. A reload that fails to parse keeps the previous table.
func WatchRules(ctx context.Context, gate *RuleGate, path string, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors and config
	// managers replace files via rename, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch rules directory: %w", err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			rules, err := LoadRules(path)
			if err != nil {
				logger.WithError(err).Warn("Ignoring unparseable rules file update")
				continue
			}
			gate.Replace(rules)
			logger.WithField("rules", len(rules)).Info("Reloaded authorization rules")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Rules watcher error")
		}
	}
}
