package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/cartera/date"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// Reports are the read-only portfolio views the analyst can pull. Each
// returns a markdown report; the agent never writes to the ledger.
type Reports struct {
	// Holding renders the holdings report as of a date.
	Holding func(on date.Date) (string, error)
	// Yearly renders the annual performance table.
	Yearly func() (string, error)
	// Topic returns a documentation topic, so the analyst can explain the
	// figures with the same words the reports use.
	Topic func(name string) (string, error)
	// AsOf is the report date used when the model does not pass one.
	AsOf date.Date
}

// NewAnalyst builds the portfolio analyst expert, armed with the report
// tools.
func NewAnalyst(r *Reports) *Expert {
	tools := []Function{holdingTool(r), yearlyTool(r), topicTool(r)}
	return &Expert{
		Name: "Analyst",
		Description: `The analyst reads the user's investment portfolio. It can pull the
current holdings, the yearly performance table and the documentation of
how the figures are computed.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(tools)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are the analyst of the user's personal investment portfolio,
			a mix of US-listed securities in dollars and Peruvian funds in soles.
			Use the tools to read the actual figures before answering; never
			invent holdings or numbers. Figures come back as markdown tables,
			quote them when useful. Amounts are reported in USD unless stated
			otherwise.`}}},
		},
		Library: NewLibrary(tools),
	}
}

// Func implements Function from a declaration and a callback.
type Func struct {
	Decl *genai.FunctionDeclaration
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

// respond builds a function response carrying either an output or an error.
func respond(id, name string, output string, err error) *genai.FunctionResponse {
	fresp := &genai.FunctionResponse{ID: id, Name: name}
	if err != nil {
		fresp.Response = map[string]any{"error": err.Error()}
		return fresp
	}
	fresp.Response = map[string]any{"output": output}
	return fresp
}

func holdingTool(r *Reports) Function {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Holdings",
			Description: `Holdings returns the portfolio state on a given day: every open
			position with quantity, average cost, price, market value, gains and ROI,
			plus totals in USD.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"date": {
						Type:        genai.TypeString,
						Description: "The day to report on, format YYYY-MM-DD. Defaults to the last closed day.",
					},
				},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown holdings report.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			on, err := argDate(args, r.AsOf)
			if err != nil {
				return respond(id, "Holdings", "", err)
			}
			out, err := r.Holding(on)
			return respond(id, "Holdings", out, err)
		},
	}
}

func yearlyTool(r *Reports) Function {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Yearly",
			Description: `Yearly returns the annual performance table: per calendar year the
			opening and closing values, net flows, return, max drawdown, the FX
			decomposition of the return, and benchmark index returns.`,
			Parameters: &genai.Schema{Type: genai.TypeObject},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown yearly performance report.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			out, err := r.Yearly()
			return respond(id, "Yearly", out, err)
		},
	}
}

func topicTool(r *Reports) Function {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Documentation",
			Description: `Documentation returns how the portfolio figures are computed
			(topics: cost-basis, evolution, yearly, data-files, or * for all).`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"topic": {
						Type:        genai.TypeString,
						Description: "The topic name.",
					},
				},
				Required: []string{"topic"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The topic content in markdown.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			name, ok := args["topic"].(string)
			if !ok {
				return respond(id, "Documentation", "", fmt.Errorf("argument 'topic' is not a string but %T", args["topic"]))
			}
			out, err := r.Topic(name)
			return respond(id, "Documentation", out, err)
		},
	}
}

// argDate reads the optional "date" argument, defaulting to fallback.
func argDate(args map[string]any, fallback date.Date) (date.Date, error) {
	idate, ok := args["date"]
	if !ok {
		return fallback, nil
	}
	sdate, ok := idate.(string)
	if !ok {
		return date.Date{}, fmt.Errorf("argument 'date' is not a string but %T", idate)
	}
	on, err := date.Parse(sdate)
	if err != nil {
		return date.Date{}, fmt.Errorf("argument 'date' must look like %q: %w", time.Now().Format(date.Format), err)
	}
	return on, nil
}
