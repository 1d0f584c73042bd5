package tembo

import (
	"context"
	"net/http"
	"time"

	"github.com/AnandVishesh1301/temboXpoke/internal/config"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

const (
	apiVersion = "v1"
	// callTimeout bounds each Tembo request.
	callTimeout = 30 * time.Second
)

// TemboModule exposes task and automation creation on the Tembo platform.
type TemboModule struct {
	apiKey string
	api    *modules.Upstream
}

// New creates a TemboModule. A nil client uses http.DefaultClient.
func New(cfg config.TemboConfig, client *http.Client) *TemboModule {
	return &TemboModule{
		apiKey: cfg.APIKey,
		api:    newUpstream(cfg, client),
	}
}

func (m *TemboModule) Name() string { return "tembo" }

func (m *TemboModule) Description() string {
	return "Tembo - create coding tasks and scheduled automations for background agents"
}

func (m *TemboModule) APIVersion() string { return apiVersion }

func (m *TemboModule) Tools() []modules.Tool { return toolDefinitions }

// ExecuteTool executes a tool by name
func (m *TemboModule) ExecuteTool(ctx context.Context, name string, params map[string]any) (modules.Result, error) {
	switch name {
	case "create_tembo_task":
		return m.createTask(ctx, params)
	case "create_tembo_automation":
		return m.createAutomation(ctx, params)
	default:
		return nil, modules.Fail(modules.KindInternal, "unknown tool: %s", name)
	}
}

// =============================================================================
// Tool Definitions
// =============================================================================

var (
	taskSchema = modules.InputSchema{
		Type: "object",
		Properties: map[string]modules.Property{
			"prompt": {
				Type:        "string",
				Description: "Natural-language description of the coding task for the agent.",
			},
			"repositories": {
				Type:        "array",
				Description: "Repository URLs the task runs against, e.g. https://github.com/org/repo.",
				Items:       &modules.Property{Type: "string"},
			},
			"agent": {
				Type:        "string",
				Description: "Agent to run the task, e.g. claudeCode:claude-opus-4-5. Tembo's default when omitted.",
			},
			"branch": {
				Type:        "string",
				Description: "Target branch. Tembo's default when omitted.",
			},
			"queue_right_away": {
				Type:        "boolean",
				Description: "Start the task immediately instead of leaving it queued.",
			},
		},
		Required: []string{"prompt", "repositories"},
	}

	automationSchema = modules.InputSchema{
		Type: "object",
		Properties: map[string]modules.Property{
			"name": {
				Type:        "string",
				Description: "Display name of the automation.",
			},
			"aim": {
				Type:        "string",
				Description: "What the automation should accomplish on each run.",
			},
			"cron": {
				Type:        "string",
				Description: "Cron expression for the schedule, e.g. \"0 9 * * 1-5\".",
			},
			"mcp_servers": {
				Type:        "array",
				Description: "MCP server identifiers the automation may use.",
				Items:       &modules.Property{Type: "string"},
			},
			"agent": {
				Type:        "string",
				Description: "Agent to run the automation.",
			},
			"triggers": {
				Type:        "array",
				Description: "Event triggers, passed to Tembo as-is.",
				Items:       &modules.Property{Type: "object"},
			},
			"extra_json_content": {
				Type:        "object",
				Description: "Additional keys merged into jsonContent. Keys here override aim.",
			},
		},
		Required: []string{"name", "aim", "cron"},
	}
)

var toolDefinitions = []modules.Tool{
	{
		Name:        "create_tembo_task",
		Description: "Create a Tembo coding task for one or more repositories. Returns the created task with its id and status.",
		InputSchema: taskSchema,
		Annotations: modules.AnnotateCreate,
		Timeout:     callTimeout,
	},
	{
		Name:        "create_tembo_automation",
		Description: "Create a scheduled Tembo automation that runs an agent on a cron schedule.",
		InputSchema: automationSchema,
		Annotations: modules.AnnotateCreate,
		Timeout:     callTimeout,
	},
}
