package bot

import (
	"context"
	"regexp"
	"strings"

	"github.com/agendazap/agendazap/pkg/logging"
)

// Detection sources.
const (
	SourceRule    = "rule"
	SourceML      = "ml"
	SourceContext = "context"
	SourceNone    = "none"
)

// IntentResult is the final word on what a message means.
type IntentResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// DetectContext carries the positional evidence used for relabeling.
type DetectContext struct {
	State      StateName
	LastIntent Intent
}

// DetectorConfig tunes the rule/ML dispatch. Zero values get defaults.
type DetectorConfig struct {
	RuleConfidenceThreshold float64
	MLMinConfidence         float64
	MLImprovementMargin     float64
	MLWordThreshold         int
}

func (c *DetectorConfig) applyDefaults() {
	if c.RuleConfidenceThreshold == 0 {
		c.RuleConfidenceThreshold = 0.8
	}
	if c.MLMinConfidence == 0 {
		c.MLMinConfidence = 0.6
	}
	if c.MLImprovementMargin == 0 {
		c.MLImprovementMargin = 0.15
	}
	if c.MLWordThreshold == 0 {
		c.MLWordThreshold = 3
	}
}

// Detector combines the rule engine with the statistical classifier. The rule
// engine always runs; the classifier only when rules are unsure or the
// message is long, and its answer must beat the rules by a margin to win.
// Context relabeling overrides both when its trigger matches.
type Detector struct {
	engine     *RuleEngine
	classifier Classifier
	cfg        DetectorConfig
	logger     *logging.Logger
}

func NewDetector(engine *RuleEngine, classifier Classifier, cfg DetectorConfig, logger *logging.Logger) *Detector {
	if engine == nil {
		panic("bot: rule engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg.applyDefaults()
	return &Detector{
		engine:     engine,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

var (
	reHasDigit    = regexp.MustCompile(`\d`)
	reTimePattern = regexp.MustCompile(`\d{1,2}h|\d{1,2}:\d{2}|manha|tarde|noite`)
)

// Detect never fails: classifier errors degrade to the rule result.
func (d *Detector) Detect(ctx context.Context, text string, dc DetectContext) IntentResult {
	if strings.TrimSpace(text) == "" {
		return IntentResult{Intent: IntentUnknown, Source: SourceNone}
	}

	ruleIntent, ruleConf := d.engine.Detect(text)
	result := IntentResult{Intent: ruleIntent, Confidence: ruleConf, Source: SourceRule}

	if d.shouldUseML(text, ruleConf) {
		mlIntent, mlConf, err := d.classifier.Classify(ctx, text)
		switch {
		case err != nil:
			d.logger.Warn("classifier failed, keeping rule result", "error", err)
		case d.mlWins(ruleConf, mlConf):
			result = IntentResult{Intent: mlIntent, Confidence: mlConf, Source: SourceML}
		}
	}

	if relabeled, ok := d.relabelFromContext(text, dc); ok {
		return relabeled
	}
	return result
}

func (d *Detector) shouldUseML(text string, ruleConf float64) bool {
	if d.classifier == nil || !d.classifier.Ready() {
		return false
	}
	words := len(strings.Fields(text))
	return ruleConf < d.cfg.RuleConfidenceThreshold || words > d.cfg.MLWordThreshold
}

func (d *Detector) mlWins(ruleConf, mlConf float64) bool {
	if mlConf < d.cfg.MLMinConfidence {
		return false
	}
	if mlConf > ruleConf+d.cfg.MLImprovementMargin {
		return true
	}
	// Very uncertain rules lose to any better ML answer.
	return mlConf > ruleConf && ruleConf < 0.5
}

// relabelFromContext encodes positional evidence: where the dialogue stands
// says more about a short reply than its content does.
func (d *Detector) relabelFromContext(text string, dc DetectContext) (IntentResult, bool) {
	norm := normalizeText(text)
	words := len(strings.Fields(norm))

	if dc.LastIntent == IntentServices && words <= 3 {
		return IntentResult{Intent: IntentSelectService, Confidence: 0.75, Source: SourceContext}, true
	}
	if dc.State == StateNeedDate && reHasDigit.MatchString(norm) {
		return IntentResult{Intent: IntentConfirmDate, Confidence: 0.8, Source: SourceContext}, true
	}
	if (dc.State == StateNeedTime || dc.State == StateNeedWindow) && reTimePattern.MatchString(norm) {
		return IntentResult{Intent: IntentConfirmTime, Confidence: 0.8, Source: SourceContext}, true
	}
	return IntentResult{}, false
}
