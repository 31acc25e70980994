package intent

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/textutil"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// RuleSet 是 YAML 规则表的结构。
type RuleSet struct {
	Intents  []IntentRule   `yaml:"intents"`
	Compound []CompoundRule `yaml:"compound"`
}

// IntentRule 是单个意图的加权短语列表。
type IntentRule struct {
	Intent  model.Intent `yaml:"intent"`
	Phrases []Phrase     `yaml:"phrases"`
}

type Phrase struct {
	Text   string `yaml:"text"`
	Weight int    `yaml:"weight"`
}

// CompoundRule 是组合模式加分规则，When 为布尔型 CEL 表达式。
type CompoundRule struct {
	Name   string       `yaml:"name"`
	Intent model.Intent `yaml:"intent"`
	Bonus  int          `yaml:"bonus"`
	When   string       `yaml:"when"`
}

type compiledPhrase struct {
	pattern *regexp.Regexp
	weight  int
}

type compiledIntent struct {
	intent  model.Intent
	phrases []compiledPhrase
}

type compiledCompound struct {
	name    string
	intent  model.Intent
	bonus   int
	program cel.Program
}

type compiledRules struct {
	intents  []compiledIntent
	compound []compiledCompound
}

// compileRules 解析并一次性编译规则表；意图顺序决定平局时的胜者。
func compileRules(raw []byte) (*compiledRules, error) {
	var set RuleSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("解析意图规则失败: %w", err)
	}
	if len(set.Intents) == 0 {
		return nil, fmt.Errorf("意图规则为空")
	}

	known := make(map[model.Intent]bool, len(model.Intents))
	for _, it := range model.Intents {
		known[it] = true
	}

	rules := &compiledRules{}
	for _, ir := range set.Intents {
		if !known[ir.Intent] {
			return nil, fmt.Errorf("未知意图: %q", ir.Intent)
		}
		ci := compiledIntent{intent: ir.Intent}
		for _, p := range ir.Phrases {
			text := textutil.Fold(p.Text)
			if text == "" {
				continue
			}
			weight := p.Weight
			if weight <= 0 {
				weight = 1
			}
			ci.phrases = append(ci.phrases, compiledPhrase{
				pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(text) + `\b`),
				weight:  weight,
			})
		}
		rules.intents = append(rules.intents, ci)
	}

	env, err := cel.NewEnv(cel.Variable("text", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("创建 CEL 环境失败: %w", err)
	}
	for _, cr := range set.Compound {
		if !known[cr.Intent] {
			return nil, fmt.Errorf("组合规则 %s 的意图未知: %q", cr.Name, cr.Intent)
		}
		expr := strings.TrimSpace(cr.When)
		if expr == "" {
			return nil, fmt.Errorf("组合规则 %s 缺少表达式", cr.Name)
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("编译组合规则 %s 失败: %w", cr.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("组合规则 %s 的输出类型必须为 bool", cr.Name)
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("构建组合规则 %s 失败: %w", cr.Name, err)
		}
		rules.compound = append(rules.compound, compiledCompound{
			name:    cr.Name,
			intent:  cr.Intent,
			bonus:   cr.Bonus,
			program: program,
		})
	}
	return rules, nil
}
