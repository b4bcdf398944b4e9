package parser

import "github.com/cloudflare/ahocorasick"

// Rule is one entry of the classification priority list.
type Rule struct {
	Type     ItemType
	Keywords []string
}

// DefaultRules returns the built-in priority list: work verbs first, then
// named hardware, then raw materials.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type: TypeWork,
			Keywords: []string{
				"安裝", "安裝測試", "測試", "拆收", "運交", "搬遷",
				"整合", "改接", "移設", "調整", "修改", "擴充",
			},
		},
		{
			Type: TypeEquipment,
			Keywords: []string{
				"控制器", "伺服器", "交換器", "攝影機", "分電箱", "配電櫃", "UPS", "機櫃",
				"標誌", "讀卡機", "記錄主機", "轉換器", "終端", "分析器", "工作站", "閥",
				"閘閥", "逆止閥", "蝶型閥", "過濾器", "接頭", "感測器", "智慧影像", "探測器",
				"變標誌", "支架", "構造物", "PDU",
			},
		},
		{
			Type: TypeMaterial,
			Keywords: []string{
				"光纜", "電纜", "電線", "導線", "管", "鋼管", "保溫", "盒",
				"配線", "托架", "鋁皮", "配線機櫃", "鋁製", "電纜托架",
			},
		},
	}
}

// Classifier assigns an ItemType by case-sensitive keyword containment.
// It is safe for concurrent use.
// Rules are evaluated in order and the first rule with any keyword in the
// name wins. Names matching no rule fall back to material.
type Classifier struct {
	types    []ItemType
	matchers []*ahocorasick.Matcher
}

// NewClassifier builds one automaton per rule.
func NewClassifier(rules []Rule) *Classifier {
	c := &Classifier{
		types:    make([]ItemType, 0, len(rules)),
		matchers: make([]*ahocorasick.Matcher, 0, len(rules)),
	}
	for _, r := range rules {
		if len(r.Keywords) == 0 {
			continue
		}
		c.types = append(c.types, r.Type)
		c.matchers = append(c.matchers, ahocorasick.NewStringMatcher(r.Keywords))
	}
	return c
}

// Classify returns the type of the first matching rule.
func (c *Classifier) Classify(name string) ItemType {
	if name == "" {
		return TypeMaterial
	}

	in := []byte(name)
	for i, m := range c.matchers {
		if len(m.MatchThreadSafe(in)) > 0 {
			return c.types[i]
		}
	}
	return TypeMaterial
}

var defaultClassifier = NewClassifier(DefaultRules())

// Classify classifies name with the built-in rules.
func Classify(name string) ItemType {
	return defaultClassifier.Classify(name)
}
