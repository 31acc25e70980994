// Package query 为每个意图构造参数化 SQL，并在其上完成缺勤推导等计算。
// 所有语句都经由 scopedQuery 构造，数据范围谓词总是 WHERE 中的第一个条件。
package query

import (
	"context"
	"strings"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/rbac"
)

// Stmt 是一条完整的参数化语句。SQL 中只出现占位符，值全部位于 Args。
type Stmt struct {
	Name string
	SQL  string
	Args []interface{}
}

// Source 执行语句并返回松散类型的记录。
type Source interface {
	Rows(ctx context.Context, stmt Stmt) ([]model.Row, error)
}

type scopedQuery struct {
	name     string
	base     string
	baseArgs []interface{}
	where    []string
	args     []interface{}
	groupBy  string
	having   string
	orderBy  string
	limit    int
}

// newScopedQuery 以数据范围谓词开始一条查询。空谓词按拒绝处理。
func newScopedQuery(name, base string, scope rbac.Predicate, baseArgs ...interface{}) *scopedQuery {
	q := &scopedQuery{name: name, base: base, baseArgs: baseArgs}
	if strings.TrimSpace(scope.SQL) == "" {
		q.where = append(q.where, "1 = 0")
		return q
	}
	q.where = append(q.where, scope.SQL)
	q.args = append(q.args, scope.Args...)
	return q
}

// And 追加一个条件，cond 中的 ? 与 args 一一对应。
func (q *scopedQuery) And(cond string, args ...interface{}) *scopedQuery {
	q.where = append(q.where, cond)
	q.args = append(q.args, args...)
	return q
}

func (q *scopedQuery) GroupBy(clause string) *scopedQuery {
	q.groupBy = clause
	return q
}

func (q *scopedQuery) Having(clause string) *scopedQuery {
	q.having = clause
	return q
}

func (q *scopedQuery) OrderBy(clause string) *scopedQuery {
	q.orderBy = clause
	return q
}

func (q *scopedQuery) Limit(n int) *scopedQuery {
	q.limit = n
	return q
}

// Build 生成最终语句。
func (q *scopedQuery) Build() Stmt {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(q.base))
	b.WriteString(" WHERE ")
	for i, w := range q.where {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		b.WriteString(w)
		b.WriteString(")")
	}
	if q.groupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(q.groupBy)
	}
	if q.having != "" {
		b.WriteString(" HAVING ")
		b.WriteString(q.having)
	}
	if q.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.orderBy)
	}

	args := make([]interface{}, 0, len(q.baseArgs)+len(q.args)+1)
	args = append(args, q.baseArgs...)
	args = append(args, q.args...)
	if q.limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.limit)
	}
	return Stmt{Name: q.name, SQL: b.String(), Args: args}
}

// likeContains 转义 LIKE 通配符后包成 %value%，结果仍作为参数传入。
func likeContains(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(v) + "%"
}

// withIdentity 在范围谓词之后追加员工编号和姓名过滤，只能进一步收窄结果。
func withIdentity(q *scopedQuery, e model.Entities, codeColumn, nameColumn string) {
	if e.Code != "" {
		q.And(codeColumn+" = ?", e.Code)
	}
	if e.Name != "" && nameColumn != "" {
		q.And(nameColumn+" LIKE ?", likeContains(e.Name))
	}
}
