// Package formatter 把查询结果转换为面向员工的西班牙语回复。
package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/query"
	"hr-assistant-go/pkg/llm"
	"hr-assistant-go/pkg/log"
)

const aiConfidenceBoost = 0.05

// 导出按钮的固定顺序：表格、纯文本、文档。
var exportFormats = []struct {
	format string
	label  string
}{
	{"xlsx", "Descargar Excel"},
	{"txt", "Descargar TXT"},
	{"docx", "Descargar Word"},
}

const systemPrompt = "Eres el asistente de Recursos Humanos de la empresa. Responde siempre en español, " +
	"de forma breve, clara y amable. Usa solo los datos proporcionados; si no hay datos, dilo sin inventar nada. " +
	"No menciones consultas SQL, tablas ni errores técnicos."

const chatSystemPrompt = "Eres el asistente de Recursos Humanos de la empresa. Responde siempre en español y en pocas frases. " +
	"Si la pregunta no trata de fichajes, cuadrantes, permisos, nóminas, documentos o procedimientos, " +
	"explica amablemente qué tipo de consultas puedes resolver."

// Snapshotter 保存完整结果集，返回供导出按钮引用的 id。
type Snapshotter interface {
	Save(ctx context.Context, intent model.Intent, rows []model.Row) (string, error)
}

// Options 配置格式化器的超时与摘要阈值。
type Options struct {
	DataTimeout      time.Duration
	ChatTimeout      time.Duration
	SummaryThreshold int
}

// Input 是一次格式化的输入。
type Input struct {
	Intent     model.Intent
	Entities   model.Entities
	Message    string
	User       model.User
	Result     query.Result
	Confidence float64
}

// Output 是格式化后的回复。
type Output struct {
	Text        string
	Confidence  float64
	Actions     []model.Action
	AIFormatted bool
	Summarized  bool
}

// Formatter 定义了回复格式化器的接口。任何方法都不会返回错误。
type Formatter interface {
	Format(ctx context.Context, in Input) Output
	Conversational(ctx context.Context, in Input) Output
	Clarification(in Input) Output
}

type formatter struct {
	client llm.Client
	snap   Snapshotter
	opts   Options
}

// NewFormatter 创建一个新的格式化器。client 与 snap 均可为 nil。
func NewFormatter(client llm.Client, snap Snapshotter, opts Options) Formatter {
	if opts.DataTimeout <= 0 {
		opts.DataTimeout = 30 * time.Second
	}
	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = 10 * time.Second
	}
	if opts.SummaryThreshold <= 0 {
		opts.SummaryThreshold = 10
	}
	return &formatter{client: client, snap: snap, opts: opts}
}

// Format 渲染数据型回复。结果超过阈值时改送摘要并附带三个导出按钮。
func (f *formatter) Format(ctx context.Context, in Input) Output {
	rows := in.Result.Rows
	out := Output{Confidence: model.ClampConfidence(in.Confidence)}
	if len(rows) == 0 {
		out.Text = fallbackText(in.Result.Kind, rows, false)
		return out
	}

	var payload interface{}
	if len(rows) > f.opts.SummaryThreshold {
		out.Summarized = true
		out.Actions = f.exportActions(ctx, in)
		payload = buildSummary(in.Result.Kind, rows)
	} else {
		payload = pruneAll(rows)
	}

	prompt, err := dataPrompt(in, payload, out.Summarized)
	if err != nil {
		log.Warnf("[Formatter] 构造提示词失败, intent: %s, err: %v", in.Intent, err)
		out.Text = fallbackText(in.Result.Kind, rows, out.Summarized)
		return out
	}

	text, err := f.complete(ctx, f.opts.DataTimeout, systemPrompt, prompt)
	if err != nil {
		out.Text = fallbackText(in.Result.Kind, rows, out.Summarized)
		return out
	}
	out.Text = text
	out.AIFormatted = true
	out.Confidence = boost(out.Confidence)
	return out
}

// Conversational 渲染不查询数据的闲聊回复，失败时返回帮助文本。
func (f *formatter) Conversational(ctx context.Context, in Input) Output {
	out := Output{Confidence: model.ClampConfidence(in.Confidence)}
	text, err := f.complete(ctx, f.opts.ChatTimeout, chatSystemPrompt, in.Message)
	if err != nil {
		out.Text = greetingText
		return out
	}
	out.Text = text
	out.AIFormatted = true
	out.Confidence = boost(out.Confidence)
	return out
}

// Clarification 返回确定性的澄清提示，不调用模型。
func (f *formatter) Clarification(in Input) Output {
	return Output{
		Text:       ClarificationText(in.Intent),
		Confidence: model.ClampConfidence(in.Confidence),
	}
}

// complete 在独立的截止时间内调用模型。超时后请求被取消，而不是被遗弃。
func (f *formatter) complete(ctx context.Context, timeout time.Duration, system, user string) (string, error) {
	if f.client == nil || !f.client.Enabled() {
		return "", llm.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := f.client.Complete(ctx, llm.Request{System: system, User: user})
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, context.DeadlineExceeded):
		log.Warnf("[Formatter] 模型调用超时(%s)，使用模板回复", timeout)
	case errors.Is(err, llm.ErrEmptyResponse):
		log.Warnf("[Formatter] 模型返回空内容，使用模板回复")
	default:
		log.Warnf("[Formatter] 模型调用失败，使用模板回复: %v", err)
	}
	return "", err
}

func (f *formatter) exportActions(ctx context.Context, in Input) []model.Action {
	var exportID string
	if f.snap != nil {
		id, err := f.snap.Save(ctx, in.Intent, in.Result.Rows)
		if err != nil {
			log.Warnf("[Formatter] 保存导出快照失败, user: %s, err: %v", in.User.ID, err)
		} else {
			exportID = id
		}
	}

	actions := make([]model.Action, 0, len(exportFormats))
	for _, ef := range exportFormats {
		payload := map[string]interface{}{
			"format": ef.format,
			"intent": string(in.Intent),
		}
		if exportID != "" {
			payload["export_id"] = exportID
		}
		actions = append(actions, model.Action{Type: "export", Label: ef.label, Payload: payload})
	}
	return actions
}

func dataPrompt(in Input, payload interface{}, summarized bool) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pregunta del empleado %s: %s\n", in.User.Name, in.Message)
	fmt.Fprintf(&b, "Tipo de consulta: %s\n", in.Result.Kind)
	if summarized {
		s, _ := payload.(Summary)
		fmt.Fprintf(&b, "Hay %d registros en total. Se incluye un resumen con conteos y ejemplos.\n", s.Total)
		if len(s.Counts) > 0 {
			fmt.Fprintf(&b, "Conteos por %s: %s\n", s.GroupBy, strings.Join(sortedCounts(s.Counts), "; "))
		}
		b.WriteString("Indica al final que el listado completo se puede descargar en Excel, TXT o Word.\n")
	}
	b.WriteString("Datos:\n")
	b.Write(data)
	return b.String(), nil
}

func boost(c float64) float64 {
	return model.ClampConfidence(min(1, c+aiConfidenceBoost))
}
