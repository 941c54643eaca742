package evaluator

import (
	"fmt"
	"os"

	"qvt-engine/internal/domain"

	"gopkg.in/yaml.v3"
)

// rulesFile YAML 规则文件结构
type rulesFile struct {
	Rules []domain.Rule `yaml:"rules"`
}

// LoadRules 从 YAML 文件加载报警规则
// 阈值/级别全部来自配置，引擎二进制里没有任何写死的规则
func LoadRules(path string) ([]domain.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	return ParseRules(data)
}

// ParseRules 解析并校验规则
func ParseRules(data []byte) ([]domain.Rule, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	seen := map[string]bool{}
	for i := range file.Rules {
		rule := &file.Rules[i]
		if err := validateRule(rule); err != nil {
			return nil, fmt.Errorf("invalid rule #%d (%s): %w", i+1, rule.RuleID, err)
		}
		if seen[rule.RuleID] {
			return nil, fmt.Errorf("duplicate rule_id: %s", rule.RuleID)
		}
		seen[rule.RuleID] = true
	}

	return file.Rules, nil
}

func validateRule(rule *domain.Rule) error {
	if rule.RuleID == "" {
		return fmt.Errorf("rule_id is required")
	}

	validAxis := false
	for _, axis := range append(domain.AllAxes(), domain.AxisComposite) {
		if rule.Axis == axis {
			validAxis = true
			break
		}
	}
	if !validAxis {
		return fmt.Errorf("unknown axis: %q", rule.Axis)
	}

	switch rule.Comparator {
	case domain.ComparatorLT, domain.ComparatorGT, domain.ComparatorLTE, domain.ComparatorGTE:
	default:
		return fmt.Errorf("unknown comparator: %q", rule.Comparator)
	}

	switch rule.Severity {
	case domain.SeverityInfo, domain.SeverityWarning, domain.SeverityCritical:
	default:
		return fmt.Errorf("unknown severity: %q", rule.Severity)
	}

	if rule.MinWindowDays < 0 {
		return fmt.Errorf("min_window_days must not be negative")
	}

	return nil
}
