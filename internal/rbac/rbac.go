// Package rbac 根据角色解析数据访问级别，并在构造查询时生成数据范围谓词。
// 未知或缺失的角色一律解析为仅本人数据（fail-closed）。
package rbac

import (
	"regexp"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/textutil"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
)

// AccessLevel 是由角色派生出的权限层级。
type AccessLevel string

const (
	OwnDataOnly AccessLevel = "own_data_only"
	FullAccess  AccessLevel = "full_access"
)

const (
	fullAccessSubject = "level:full_access"
	hrDataObject      = "hr_data"
	readAllAction     = "read_all"
)

// 角色通过 g 规则归入 level:full_access；没有 g 规则的角色永远无法命中 p 规则。
const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// Predicate 是追加到 WHERE 子句的条件及其参数。
type Predicate struct {
	SQL  string
	Args []interface{}
}

var (
	allowAll = Predicate{SQL: "1 = 1"}
	denyAll  = Predicate{SQL: "1 = 0"}
)

// Scope 是一次请求的调用方数据范围。
type Scope struct {
	UserID string
	Level  AccessLevel
}

// Predicate 返回 ownerColumn 上的范围谓词：全量访问恒真，否则 ownerColumn = UserID。
// 非法列名直接拒绝所有行。
func (s Scope) Predicate(ownerColumn string) Predicate {
	if s.Level == FullAccess {
		return allowAll
	}
	if !columnPattern.MatchString(ownerColumn) {
		return denyAll
	}
	return Predicate{SQL: ownerColumn + " = ?", Args: []interface{}{s.UserID}}
}

// Audience 返回知识库文章的可见性谓词：仅本人数据的调用方只能看到 audience = 'all'。
func (s Scope) Audience(audienceColumn string) Predicate {
	if s.Level == FullAccess {
		return allowAll
	}
	if !columnPattern.MatchString(audienceColumn) {
		return denyAll
	}
	return Predicate{SQL: audienceColumn + " = ?", Args: []interface{}{"all"}}
}

// FullAccess 判断范围是否不受限。
func (s Scope) FullAccess() bool {
	return s.Level == FullAccess
}

// Policy 由 casbin 支撑的角色策略。
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy 创建策略，fullAccessRoles 中的每个角色都被授予全量访问。
func NewPolicy(fullAccessRoles []string) (*Policy, error) {
	m, err := casbinmodel.NewModelFromString(policyModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := enforcer.AddPolicy(fullAccessSubject, hrDataObject, readAllAction); err != nil {
		return nil, err
	}
	for _, role := range fullAccessRoles {
		slug := roleSlug(role)
		if slug == "" {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(subject(slug), fullAccessSubject); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: enforcer}, nil
}

// AccessLevel 将角色字符串（忽略大小写、首尾空白与重音）映射为访问级别。
func (p *Policy) AccessLevel(role string) AccessLevel {
	slug := roleSlug(role)
	if p == nil || p.enforcer == nil || slug == "" {
		return OwnDataOnly
	}
	ok, err := p.enforcer.Enforce(subject(slug), hrDataObject, readAllAction)
	if err != nil {
		log.Warnf("[RBAC] 角色判定失败，按仅本人数据处理, role: %q, error: %v", role, err)
		return OwnDataOnly
	}
	if ok {
		return FullAccess
	}
	return OwnDataOnly
}

// ScopingPredicate 直接为给定用户和角色生成 ownerColumn 上的范围谓词。
func (p *Policy) ScopingPredicate(userID, role, ownerColumn string) Predicate {
	return p.ScopeFor(model.User{ID: userID, Role: role}).Predicate(ownerColumn)
}

// ScopeFor 解析调用方的数据范围。
func (p *Policy) ScopeFor(user model.User) Scope {
	return Scope{UserID: user.ID, Level: p.AccessLevel(user.Role)}
}

func roleSlug(role string) string {
	return textutil.Fold(role)
}

func subject(slug string) string {
	return "role:" + slug
}
