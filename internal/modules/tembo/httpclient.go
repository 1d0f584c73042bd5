package tembo

import (
	"context"
	"net/http"

	"github.com/AnandVishesh1301/temboXpoke/internal/config"
	"github.com/AnandVishesh1301/temboXpoke/internal/modules"
)

func newUpstream(cfg config.TemboConfig, client *http.Client) *modules.Upstream {
	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	return &modules.Upstream{
		Service: "Tembo",
		BaseURL: cfg.BaseURL,
		Header:  header,
		Client:  client,
	}
}

// post sends payload to path and decodes a 200 response. errorFields lists
// the body fields consulted, in order, for the message of a non-200 reply.
func (m *TemboModule) post(ctx context.Context, path string, payload *modules.Payload, errorFields ...string) (any, error) {
	resp, err := m.api.Do(ctx, http.MethodPost, path, payload.Bytes())
	if err != nil {
		return nil, err
	}

	if resp.Status != http.StatusOK {
		return nil, modules.FailStatus(modules.KindRemoteError, resp.Status,
			resp.ErrorText(errorFields...))
	}

	data, err := modules.DecodeBody(resp.Body)
	if err != nil {
		return nil, modules.FailStatus(modules.KindDecodeError, resp.Status,
			"Failed to parse Tembo response JSON: "+err.Error()).Wrap(err)
	}
	return data, nil
}
