package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

// monitoringStage wires the enabled monitoring SDKs into the generated app.
// The orchestrator only schedules this stage when at least one integration
// is enabled.
func (o *Orchestrator) monitoringStage(ctx context.Context) error {
	if _, err := o.loadState(); err != nil {
		return err
	}

	if o.cfg.Monitoring.Sentry.Enabled {
		file := pipeline.GeneratedFile{
			Path:     "src/services/sentry.ts",
			Content:  sentryInitFile(o.cfg.Monitoring.Sentry.DSN),
			Language: "ts",
			Stage:    pipeline.StageMonitoringSetup,
		}
		if _, err := o.store.WriteGeneratedFile(file.Path, file.Content); err != nil {
			return err
		}
		if err := o.store.AddGeneratedFile(file); err != nil {
			return err
		}
		o.publishFile(file.Path, file.Language)
	}

	if o.cfg.Monitoring.PostHog.Enabled {
		file := pipeline.GeneratedFile{
			Path:     "src/services/posthog.ts",
			Content:  posthogInitFile(o.cfg.Monitoring.PostHog.APIKey),
			Language: "ts",
			Stage:    pipeline.StageMonitoringSetup,
		}
		if _, err := o.store.WriteGeneratedFile(file.Path, file.Content); err != nil {
			return err
		}
		if err := o.store.AddGeneratedFile(file); err != nil {
			return err
		}
		o.publishFile(file.Path, file.Language)
	}

	call := pipeline.APICall{
		ID:      o.callID("monitoring"),
		Stage:   pipeline.StageMonitoringSetup,
		Service: "monitoring",
		Method:  "setup",
		Response: map[string]interface{}{
			"sentry":  o.cfg.Monitoring.Sentry.Enabled,
			"posthog": o.cfg.Monitoring.PostHog.Enabled,
		},
		Timestamp: time.Now().UTC(),
	}
	return o.store.AppendAPICall(call)
}

func sentryInitFile(dsn string) string {
	if dsn == "" {
		dsn = "YOUR_SENTRY_DSN"
	}
	return fmt.Sprintf(`// Sentry Error Tracking
import * as Sentry from '@sentry/react-native';

export function initSentry() {
  Sentry.init({
    dsn: '%s',
    tracesSampleRate: 1.0,
    debug: __DEV__,
  });
}

export { Sentry };
`, dsn)
}

func posthogInitFile(apiKey string) string {
	if apiKey == "" {
		apiKey = "YOUR_POSTHOG_KEY"
	}
	return fmt.Sprintf(`// PostHog Analytics
import PostHog from 'posthog-react-native';

export const posthog = new PostHog('%s', {
  host: 'https://us.i.posthog.com',
});

export function trackScreen(screenName: string) {
  posthog.screen(screenName);
}

export function trackEvent(event: string, properties?: Record<string, unknown>) {
  posthog.capture(event, properties);
}
`, apiKey)
}
