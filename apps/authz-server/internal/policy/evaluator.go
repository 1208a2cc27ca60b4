package policy

import (
	"strconv"
	"strings"
	"time"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// Evaluate は条件セットを要求属性と現在時刻で評価する。
// 時間帯制限は暗黙のAND条件として扱う。ANDは最初の偽、ORは最初の真で打ち切る。
// リーフが空の場合は無条件に一致する。
func (c *ConditionSet) Evaluate(req *Request, now time.Time) bool {
	if c.Time != nil && !c.Time.Contains(now) {
		return false
	}
	if len(c.Leaves) == 0 {
		return true
	}

	switch c.Logic {
	case LogicOR:
		for i := range c.Leaves {
			if c.Leaves[i].Evaluate(req) {
				return true
			}
		}
		return false
	default:
		for i := range c.Leaves {
			if !c.Leaves[i].Evaluate(req) {
				return false
			}
		}
		return true
	}
}

// Evaluate はリーフを要求属性に対して評価する。
// 属性が存在しない場合、not_equalsのみ真となる。
func (l *Leaf) Evaluate(req *Request) bool {
	actual, ok := req.lookup(l.Attribute, l.key)
	if !ok {
		return l.Operator == OpNotEquals
	}
	actual = strings.TrimSpace(actual)

	switch l.Operator {
	case OpEquals:
		return equalValues(actual, l.Value)
	case OpNotEquals:
		return !equalValues(actual, l.Value)
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(l.Value))
	case OpRegex:
		return l.re != nil && l.re.MatchString(actual)
	case OpGreaterThan, OpLessThan:
		if !l.isNum {
			return false
		}
		n, err := strconv.ParseFloat(actual, 64)
		if err != nil {
			return false
		}
		if l.Operator == OpGreaterThan {
			return n > l.number
		}
		return n < l.number
	case OpInList:
		for _, v := range l.list {
			if equalValues(actual, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// equalValues は大文字小文字を区別せずに比較する。
// 双方がMACアドレスとして解釈できる場合は正規化後に比較する。
func equalValues(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	ma, okA := model.NormalizeMAC(a)
	mb, okB := model.NormalizeMAC(b)
	return okA && okB && ma == mb
}
