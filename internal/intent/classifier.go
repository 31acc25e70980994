// Package intent 实现基于规则表的意图分类与实体抽取。
package intent

import (
	"regexp"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/textutil"
)

// Classifier 定义了意图分类器的接口。
type Classifier interface {
	Classify(text string) model.IntentResult
	// HasTemporalPhrase 判断文本中是否含有“hoy / ayer / este mes”等时间短语。
	HasTemporalPhrase(text string) bool
}

type classifier struct {
	rules *compiledRules
	now   func() time.Time
}

// Option 配置分类器。
type Option func(*classifier)

// WithClock 注入时钟，用于解析“今天”“本月”等相对时间。
func WithClock(now func() time.Time) Option {
	return func(c *classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClassifier 编译规则表并创建分类器。rules 为空时使用内置词表。
func NewClassifier(rules []byte, opts ...Option) (Classifier, error) {
	if len(rules) == 0 {
		rules = defaultRules
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	c := &classifier{rules: compiled, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type intentScore struct {
	score    int
	matches  int
	compound bool
}

// Classify 对消息打分并抽取实体。得分最高者胜出，平局保留先出现的意图。
func (c *classifier) Classify(text string) model.IntentResult {
	folded := textutil.Fold(text)
	scores := make(map[model.Intent]*intentScore, len(c.rules.intents))

	for _, ci := range c.rules.intents {
		s := &intentScore{}
		for _, p := range ci.phrases {
			n := len(p.pattern.FindAllStringIndex(folded, -1))
			s.matches += n
			s.score += n * p.weight
		}
		scores[ci.intent] = s
	}

	for _, cc := range c.rules.compound {
		out, _, err := cc.program.Eval(map[string]any{"text": folded})
		if err != nil {
			log.Warnf("[IntentClassifier] 组合规则 %s 求值失败: %v", cc.name, err)
			continue
		}
		fired, ok := out.Value().(bool)
		if !ok || !fired {
			continue
		}
		s := scores[cc.intent]
		if s == nil {
			continue
		}
		s.score += cc.bonus
		s.compound = true
	}

	best := model.IntentUnknown
	var bestScore *intentScore
	for _, ci := range c.rules.intents {
		s := scores[ci.intent]
		if s.matches == 0 {
			continue
		}
		if bestScore == nil || s.score > bestScore.score {
			best = ci.intent
			bestScore = s
		}
	}

	result := model.IntentResult{
		Intent:   best,
		Entities: extractEntities(text, folded, c.now()),
	}
	if bestScore == nil {
		result.Confidence = 0.1
		return result
	}
	result.Matches = bestScore.matches
	result.Compound = bestScore.compound
	result.Confidence = confidenceFor(bestScore.matches, bestScore.compound)
	return result
}

// confidenceFor 是命中次数的阶梯函数，组合规则命中时再加 0.1。
func confidenceFor(matches int, compound bool) float64 {
	var c float64
	switch {
	case matches <= 0:
		c = 0.1
	case matches == 1:
		c = 0.6
	case matches == 2:
		c = 0.75
	default:
		c = 0.9
	}
	if compound {
		c += 0.1
	}
	return model.ClampConfidence(c)
}

var temporalPhrase = regexp.MustCompile(`\b(hoy|ayer|este mes|mes actual|todo el mes|mes completo|mes pasado)\b`)

func (c *classifier) HasTemporalPhrase(text string) bool {
	return temporalPhrase.MatchString(textutil.Fold(text))
}
