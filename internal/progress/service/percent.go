package service

import (
	"encoding/json"
	"math"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
)

// CalculatePercent 按模板权重计算完成率，保留两位小数。
// 纯函数：只依赖模板和里程碑映射，不触碰存储。
// 离散里程碑为 true 时贡献全部权重；百分比里程碑按 weight*(value/100) 贡献。
func CalculatePercent(t *entity.ProgressTemplate, milestones entity.JSONB) float64 {
	total := 0.0
	for _, m := range t.Milestones {
		v, ok := milestones[m.Name]
		if !ok {
			continue
		}
		if m.IsPartial {
			if f, ok := toNumber(v); ok {
				total += float64(m.Weight) * f / 100
			}
		} else {
			if b, ok := v.(bool); ok && b {
				total += float64(m.Weight)
			}
		}
	}
	return round2(total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// toNumber jsonb 反序列化出 float64，进程内调用可能传 int
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// validateMilestoneValue 按里程碑类型校验并规范化取值。
// 离散里程碑要求布尔；百分比里程碑要求 [0,100] 且符合步进粒度。
func validateMilestoneValue(m *entity.MilestoneConfig, value interface{}, step int) (interface{}, error) {
	if m.IsPartial {
		f, ok := toNumber(value)
		if !ok {
			return nil, errTypeMismatch(m.Name, "numeric")
		}
		if f < 0 || f > 100 {
			return nil, errOutOfRange(m.Name, "must be within [0,100]")
		}
		if step > 1 && math.Mod(f, float64(step)) != 0 {
			return nil, errOutOfRange(m.Name, "violates the configured step granularity")
		}
		return f, nil
	}
	b, ok := value.(bool)
	if !ok {
		return nil, errTypeMismatch(m.Name, "boolean")
	}
	return b, nil
}

// maxMilestoneValue 里程碑的满值：离散为 true，百分比为 100
func maxMilestoneValue(m *entity.MilestoneConfig) interface{} {
	if m.IsPartial {
		return float64(100)
	}
	return true
}

// isMaxValue 取值是否达到满值
func isMaxValue(m *entity.MilestoneConfig, v interface{}) bool {
	if m.IsPartial {
		f, ok := toNumber(v)
		return ok && f >= 100
	}
	b, ok := v.(bool)
	return ok && b
}

// marshalValue 审计事件取值序列化；未设置的前值序列化为 null
func marshalValue(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// valuesEqual 审计动作判定用的宽松取值比较
func valuesEqual(a, b interface{}) bool {
	if af, aok := toNumber(a); aok {
		bf, bok := toNumber(b)
		return bok && af == bf
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	return aok && bok && ab == bb
}
