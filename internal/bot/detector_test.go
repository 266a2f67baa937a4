package bot

import (
	"context"
	"errors"
	"testing"
)

type spyClassifier struct {
	calls  int
	intent Intent
	conf   float64
	err    error
	ready  bool
}

func (s *spyClassifier) Ready() bool { return s.ready }

func (s *spyClassifier) Classify(ctx context.Context, text string) (Intent, float64, error) {
	s.calls++
	if s.err != nil {
		return IntentUnknown, 0, s.err
	}
	return s.intent, s.conf, nil
}

func TestDetectConfidentRuleSkipsClassifier(t *testing.T) {
	spy := &spyClassifier{ready: true, intent: IntentPrice, conf: 0.99}
	d := NewDetector(NewRuleEngine(), spy, DetectorConfig{}, nil)

	// "quanto custa?" scores well above the rule threshold and is short.
	res := d.Detect(context.Background(), "quanto custa?", DetectContext{})
	if res.Intent != IntentPrice || res.Source != SourceRule {
		t.Fatalf("unexpected result: %+v", res)
	}
	if spy.calls != 0 {
		t.Fatalf("classifier must not run when rules are confident, got %d calls", spy.calls)
	}
}

func TestDetectMLWinsOnMargin(t *testing.T) {
	spy := &spyClassifier{ready: true, intent: IntentSchedule, conf: 0.9}
	d := NewDetector(NewRuleEngine(), spy, DetectorConfig{}, nil)

	res := d.Detect(context.Background(), "blz mano vamo ver", DetectContext{})
	if spy.calls != 1 {
		t.Fatalf("classifier should have run once, got %d", spy.calls)
	}
	if res.Intent != IntentSchedule || res.Source != SourceML {
		t.Fatalf("ML should win with a clear margin: %+v", res)
	}
}

func TestDetectMLLosesWithoutMargin(t *testing.T) {
	// Rules score "bom dia" at 0.6; 0.7 from ML is inside the 0.15 margin.
	spy := &spyClassifier{ready: true, intent: IntentPrice, conf: 0.7}
	d := NewDetector(NewRuleEngine(), spy, DetectorConfig{}, nil)

	res := d.Detect(context.Background(), "bom dia", DetectContext{})
	if spy.calls != 1 {
		t.Fatalf("classifier should have run, got %d calls", spy.calls)
	}
	if res.Intent != IntentGreeting || res.Source != SourceRule {
		t.Fatalf("rule should be kept inside the margin: %+v", res)
	}
}

func TestDetectClassifierFailureDegradesToRule(t *testing.T) {
	spy := &spyClassifier{ready: true, err: errors.New("model down")}
	d := NewDetector(NewRuleEngine(), spy, DetectorConfig{}, nil)

	res := d.Detect(context.Background(), "bom dia", DetectContext{})
	if res.Intent != IntentGreeting || res.Source != SourceRule {
		t.Fatalf("classifier failure must degrade to rule result: %+v", res)
	}
}

func TestDetectNotReadyClassifierNeverRuns(t *testing.T) {
	spy := &spyClassifier{ready: false}
	d := NewDetector(NewRuleEngine(), spy, DetectorConfig{}, nil)

	d.Detect(context.Background(), "texto totalmente fora do vocabulario", DetectContext{})
	if spy.calls != 0 {
		t.Fatalf("unready classifier must never be called, got %d", spy.calls)
	}
}

func TestDetectEmptyText(t *testing.T) {
	d := NewDetector(NewRuleEngine(), nil, DetectorConfig{}, nil)
	res := d.Detect(context.Background(), "   ", DetectContext{})
	if res.Intent != IntentUnknown || res.Source != SourceNone || res.Confidence != 0 {
		t.Fatalf("empty text should yield unknown/none: %+v", res)
	}
}

func TestDetectContextRelabeling(t *testing.T) {
	d := NewDetector(NewRuleEngine(), nil, DetectorConfig{}, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		dc   DetectContext
		want Intent
	}{
		{"short reply after services", "corte", DetectContext{LastIntent: IntentServices}, IntentSelectService},
		{"digits while asking date", "dia 23", DetectContext{State: StateNeedDate}, IntentConfirmDate},
		{"time while asking time", "de tarde", DetectContext{State: StateNeedTime}, IntentConfirmTime},
		{"time while asking window", "14h", DetectContext{State: StateNeedWindow}, IntentConfirmTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Detect(ctx, tt.text, tt.dc)
			if res.Intent != tt.want || res.Source != SourceContext {
				t.Fatalf("Detect(%q, %+v) = %+v, want %s via context", tt.text, tt.dc, res, tt.want)
			}
		})
	}

	// Relabeling overrides even a confident rule match.
	res := d.Detect(ctx, "hoje 14h", DetectContext{State: StateNeedDate})
	if res.Intent != IntentConfirmDate || res.Source != SourceContext {
		t.Fatalf("context must override rules when triggered: %+v", res)
	}
}
