package tembo

import (
	"context"
	"maps"

	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

var (
	taskFields = []string{
		"id", "status", "title", "description",
		"createdAt", "updatedAt", "organizationId",
	}
	automationFields = []string{
		"id", "name", "createdAt", "updatedAt", "enabledAt", "agent",
		"solutionType", "organizationId", "templateId", "archivedAt",
	}
)

func (m *TemboModule) requireKey() error {
	if m.apiKey == "" {
		return modules.Fail(modules.KindMissingCredential, "Missing TEMBO_API_KEY env")
	}
	return nil
}

// POST /task/create
func (m *TemboModule) createTask(ctx context.Context, params map[string]any) (modules.Result, error) {
	if err := m.requireKey(); err != nil {
		return nil, err
	}
	if err := modules.CheckTypes(taskSchema, params); err != nil {
		return nil, err
	}

	args := modules.Args(params)
	prompt := args.String("prompt")
	if prompt == "" {
		return nil, modules.Fail(modules.KindInvalidArgument, "prompt is required and must be non-empty.")
	}
	repos, _ := args.Strings("repositories")
	if len(repos) == 0 {
		return nil, modules.Fail(modules.KindInvalidArgument, "repositories must be a non-empty list of repository URLs.")
	}

	payload := modules.NewPayload().
		Str("prompt", prompt).
		Strs("repositories", repos).
		OptStr("agent", args.OptString("agent")).
		OptStr("branch", args.OptString("branch")).
		OptBool("queueRightAway", args.OptBool("queue_right_away"))

	data, err := m.post(ctx, "/task/create", payload, "error")
	if err != nil {
		return nil, err
	}

	result := modules.Success()
	result["task"] = data
	if body, ok := data.(map[string]any); ok {
		result.Hoist(body, taskFields...)
	}
	return result, nil
}

// POST /automation
func (m *TemboModule) createAutomation(ctx context.Context, params map[string]any) (modules.Result, error) {
	if err := m.requireKey(); err != nil {
		return nil, err
	}
	// extra_json_content has its own check, ordered after the required fields.
	typed := maps.Clone(params)
	delete(typed, "extra_json_content")
	if err := modules.CheckTypes(automationSchema, typed); err != nil {
		return nil, err
	}

	args := modules.Args(params)
	name := args.String("name")
	if name == "" {
		return nil, modules.Fail(modules.KindInvalidArgument, "name is required and must be non-empty.")
	}
	aim := args.String("aim")
	if aim == "" {
		return nil, modules.Fail(modules.KindInvalidArgument, "aim is required and must be non-empty.")
	}
	cron := args.String("cron")
	if cron == "" {
		return nil, modules.Fail(modules.KindInvalidArgument, "cron is required and must be a non-empty cron expression string.")
	}

	var extra map[string]any
	if v, ok := args.Value("extra_json_content"); ok {
		extra, ok = v.(map[string]any)
		if !ok {
			return nil, modules.Fail(modules.KindInvalidArgument, "extra_json_content must be an object (dict) if provided.")
		}
	}

	content := modules.NewPayload().Str("aim", aim)
	if err := content.Merge(extra); err != nil {
		return nil, modules.Fail(modules.KindInvalidArgument, "extra_json_content could not be encoded: %v", err).Wrap(err)
	}

	payload := modules.NewPayload().
		Str("name", name).
		Obj("jsonContent", content).
		Arr("schedules", modules.NewPayload().Str("cron", cron))

	servers, hasServers := args.Strings("mcp_servers")
	payload.
		OptStrs("mcpServers", servers, hasServers).
		OptStr("agent", args.OptString("agent"))
	if triggers, ok := args.Value("triggers"); ok {
		if err := payload.Any("triggers", triggers); err != nil {
			return nil, modules.Fail(modules.KindInvalidArgument, "triggers could not be encoded: %v", err).Wrap(err)
		}
	}

	data, err := m.post(ctx, "/automation", payload, "error", "message")
	if err != nil {
		return nil, err
	}

	result := modules.Success()
	result["automation"] = data
	if body, ok := data.(map[string]any); ok {
		result.Hoist(body, automationFields...)
	}
	return result, nil
}
