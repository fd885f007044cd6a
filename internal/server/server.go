package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"senryaku/internal/domain"
	"senryaku/internal/engine"
	"senryaku/internal/engine/analytics"
	"senryaku/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"campaign not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Senryaku API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Senryaku API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCampaigns(group, cfg.Engine)
	registerMissions(group, cfg.Engine)
	registerSorties(group, cfg.Engine)
	registerAARs(group, cfg.Engine)
	registerOperations(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "cannot start"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "must be"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Senryaku API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCampaigns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-campaign",
		Method:        http.MethodPost,
		Path:          "/campaigns",
		Summary:       "Create campaign",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateCampaignRequest `json:"body"`
	}) (*struct {
		Body CampaignResponse `json:"body"`
	}, error) {
		c, err := e.CreateCampaign(ctx, engine.CampaignCreateOptions{
			Name:              input.Body.Name,
			Description:       input.Body.Description,
			PriorityRank:      input.Body.PriorityRank,
			WeeklyBlockTarget: input.Body.WeeklyBlockTarget,
			Colour:            input.Body.Colour,
			Tags:              input.Body.Tags,
			TargetDate:        input.Body.TargetDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CampaignResponse `json:"body"`
		}{Body: campaignResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-campaigns",
		Method:      http.MethodGet,
		Path:        "/campaigns",
		Summary:     "List campaigns by priority rank",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"active,paused,archived,"`
	}) (*struct {
		Body []CampaignResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListCampaigns(ctx, domain.CampaignStatus(input.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CampaignResponse `json:"body"`
		}{Body: mapCampaigns(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rerank-campaigns",
		Method:      http.MethodPut,
		Path:        "/campaigns/rerank",
		Summary:     "Bulk update campaign priority ranks",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Ranks []engine.RankUpdate `json:"ranks" minItems:"1"`
		} `json:"body"`
	}) (*struct {
		Body []CampaignResponse `json:"body"`
	}, error) {
		items, err := e.RerankCampaigns(ctx, input.Body.Ranks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CampaignResponse `json:"body"`
		}{Body: mapCampaigns(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-campaign",
		Method:      http.MethodGet,
		Path:        "/campaigns/{campaign_id}",
		Summary:     "Get campaign",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CampaignID string `path:"campaign_id"`
	}) (*struct {
		Body CampaignResponse `json:"body"`
	}, error) {
		c, err := e.Repo.GetCampaign(ctx, input.CampaignID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CampaignResponse `json:"body"`
		}{Body: campaignResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-campaign",
		Method:      http.MethodPatch,
		Path:        "/campaigns/{campaign_id}",
		Summary:     "Update campaign",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CampaignID string                `path:"campaign_id"`
		Body       UpdateCampaignRequest `json:"body"`
	}) (*struct {
		Body CampaignResponse `json:"body"`
	}, error) {
		c, err := e.UpdateCampaign(ctx, engine.CampaignUpdateOptions{
			ID:                input.CampaignID,
			Name:              input.Body.Name,
			Description:       input.Body.Description,
			Status:            input.Body.Status,
			PriorityRank:      input.Body.PriorityRank,
			WeeklyBlockTarget: input.Body.WeeklyBlockTarget,
			Colour:            input.Body.Colour,
			Tags:              input.Body.Tags,
			TargetDate:        input.Body.TargetDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CampaignResponse `json:"body"`
		}{Body: campaignResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-campaign",
		Method:      http.MethodDelete,
		Path:        "/campaigns/{campaign_id}",
		Summary:     "Archive campaign (soft delete)",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CampaignID string `path:"campaign_id"`
	}) (*struct {
		Body CampaignResponse `json:"body"`
	}, error) {
		c, err := e.ArchiveCampaign(ctx, input.CampaignID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CampaignResponse `json:"body"`
		}{Body: campaignResponse(c)}, nil
	})
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create mission",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		m, err := e.CreateMission(ctx, engine.MissionCreateOptions{
			CampaignID:  input.Body.CampaignID,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			SortOrder:   input.Body.SortOrder,
			TargetDate:  input.Body.TargetDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, input *struct {
		CampaignID string `query:"campaign_id"`
		Status     string `query:"status"`
	}) (*struct {
		Body []MissionResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListMissions(ctx, repo.MissionFilters{
			CampaignID: input.CampaignID,
			Status:     domain.MissionStatus(input.Status),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []MissionResponse `json:"body"`
		}{Body: mapMissions(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{mission_id}",
		Summary:     "Get mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		m, err := e.Repo.GetMission(ctx, input.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-mission",
		Method:      http.MethodPatch,
		Path:        "/missions/{mission_id}",
		Summary:     "Update mission",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string               `path:"mission_id"`
		Body      UpdateMissionRequest `json:"body"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		m, err := e.UpdateMission(ctx, engine.MissionUpdateOptions{
			ID:          input.MissionID,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			TargetDate:  input.Body.TargetDate,
			SortOrder:   input.Body.SortOrder,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-mission",
		Method:      http.MethodDelete,
		Path:        "/missions/{mission_id}",
		Summary:     "Soft-delete mission by marking it completed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		completed := domain.MissionCompleted
		m, err := e.UpdateMission(ctx, engine.MissionUpdateOptions{ID: input.MissionID, Status: &completed})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})
}

func registerSorties(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-sortie",
		Method:        http.MethodPost,
		Path:          "/sorties",
		Summary:       "Create sortie",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateSortieRequest `json:"body"`
	}) (*struct {
		Body SortieResponse `json:"body"`
	}, error) {
		s, err := e.CreateSortie(ctx, engine.SortieCreateOptions{
			MissionID:       input.Body.MissionID,
			Title:           input.Body.Title,
			Description:     input.Body.Description,
			CognitiveLoad:   input.Body.CognitiveLoad,
			EstimatedBlocks: input.Body.EstimatedBlocks,
			SortOrder:       input.Body.SortOrder,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SortieResponse `json:"body"`
		}{Body: sortieResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sorties",
		Method:      http.MethodGet,
		Path:        "/sorties",
		Summary:     "List sorties",
	}, func(ctx context.Context, input *struct {
		MissionID string `query:"mission_id"`
		Status    string `query:"status"`
	}) (*struct {
		Body []SortieResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListSorties(ctx, repo.SortieFilters{
			MissionID: input.MissionID,
			Status:    domain.SortieStatus(input.Status),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []SortieResponse `json:"body"`
		}{Body: mapSorties(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-queued-sorties",
		Method:      http.MethodGet,
		Path:        "/sorties/queued",
		Summary:     "List queued sorties for a campaign",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		CampaignID string `query:"campaign_id" required:"true"`
	}) (*struct {
		Body []SortieResponse `json:"body"`
	}, error) {
		items, err := e.Repo.QueuedSortiesForCampaign(ctx, input.CampaignID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []SortieResponse `json:"body"`
		}{Body: mapSorties(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-sortie",
		Method:      http.MethodGet,
		Path:        "/sorties/{sortie_id}",
		Summary:     "Get sortie",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SortieID string `path:"sortie_id"`
	}) (*struct {
		Body SortieResponse `json:"body"`
	}, error) {
		s, err := e.Repo.GetSortie(ctx, input.SortieID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SortieResponse `json:"body"`
		}{Body: sortieResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-sortie",
		Method:      http.MethodPatch,
		Path:        "/sorties/{sortie_id}",
		Summary:     "Update sortie",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SortieID string              `path:"sortie_id"`
		Body     UpdateSortieRequest `json:"body"`
	}) (*struct {
		Body SortieResponse `json:"body"`
	}, error) {
		s, err := e.UpdateSortie(ctx, engine.SortieUpdateOptions{
			ID:              input.SortieID,
			Title:           input.Body.Title,
			Description:     input.Body.Description,
			CognitiveLoad:   input.Body.CognitiveLoad,
			EstimatedBlocks: input.Body.EstimatedBlocks,
			SortOrder:       input.Body.SortOrder,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SortieResponse `json:"body"`
		}{Body: sortieResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-sortie",
		Method:      http.MethodPost,
		Path:        "/sorties/{sortie_id}/start",
		Summary:     "Start sortie",
		Errors:      []int{http.StatusConflict, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SortieID string `path:"sortie_id"`
	}) (*struct {
		Body SortieResponse `json:"body"`
	}, error) {
		s, err := e.StartSortie(ctx, input.SortieID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SortieResponse `json:"body"`
		}{Body: sortieResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-sortie",
		Method:      http.MethodPost,
		Path:        "/sorties/{sortie_id}/complete",
		Summary:     "Complete sortie with after-action report",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SortieID string                `path:"sortie_id"`
		Body     CompleteSortieRequest `json:"body"`
	}) (*struct {
		Body struct {
			Sortie SortieResponse `json:"sortie"`
			AAR    AARResponse    `json:"aar"`
		} `json:"body"`
	}, error) {
		s, a, err := e.CompleteSortie(ctx, engine.SortieCompleteOptions{
			SortieID:     input.SortieID,
			EnergyBefore: input.Body.EnergyBefore,
			EnergyAfter:  input.Body.EnergyAfter,
			Outcome:      input.Body.Outcome,
			ActualBlocks: input.Body.ActualBlocks,
			Notes:        input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Sortie SortieResponse `json:"sortie"`
				AAR    AARResponse    `json:"aar"`
			} `json:"body"`
		}{}
		out.Body.Sortie = sortieResponse(s)
		out.Body.AAR = aarResponse(a)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-sortie",
		Method:      http.MethodPost,
		Path:        "/sorties/{sortie_id}/move",
		Summary:     "Move sortie to another mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SortieID string `path:"sortie_id"`
		Body     struct {
			MissionID string `json:"mission_id" minLength:"1"`
		} `json:"body"`
	}) (*struct {
		Body SortieResponse `json:"body"`
	}, error) {
		s, err := e.MoveSortie(ctx, input.SortieID, input.Body.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SortieResponse `json:"body"`
		}{Body: sortieResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "abandon-sortie",
		Method:      http.MethodDelete,
		Path:        "/sorties/{sortie_id}",
		Summary:     "Soft-delete sortie by marking it abandoned",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SortieID string `path:"sortie_id"`
	}) (*struct {
		Body SortieResponse `json:"body"`
	}, error) {
		s, err := e.AbandonSortie(ctx, input.SortieID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SortieResponse `json:"body"`
		}{Body: sortieResponse(s)}, nil
	})
}

func registerAARs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-aars",
		Method:      http.MethodGet,
		Path:        "/aars",
		Summary:     "List after-action reports",
	}, func(ctx context.Context, input *struct {
		SortieID string `query:"sortie_id"`
		Since    string `query:"since"`
	}) (*struct {
		Body []AARResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListAARs(ctx, repo.AARFilters{SortieID: input.SortieID, Since: input.Since})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AARResponse `json:"body"`
		}{Body: mapAARs(items)}, nil
	})
}

type markdownResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func markdown(text string) *markdownResponse {
	return &markdownResponse{ContentType: "text/markdown; charset=utf-8", Body: []byte(text)}
}

func registerOperations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "checkin",
		Method:        http.MethodPost,
		Path:          "/checkin",
		Summary:       "Record daily check-in (upsert by date)",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CheckInRequest `json:"body"`
	}) (*struct {
		Body CheckInResponse `json:"body"`
	}, error) {
		c, err := e.CheckIn(ctx, engine.CheckInOptions{
			Date:            input.Body.Date,
			EnergyLevel:     input.Body.EnergyLevel,
			AvailableBlocks: input.Body.AvailableBlocks,
			FocusNote:       input.Body.FocusNote,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CheckInResponse `json:"body"`
		}{Body: checkinResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "briefing-today",
		Method:      http.MethodGet,
		Path:        "/briefing/today",
		Summary:     "Generate today's briefing",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Energy string `query:"energy" enum:"green,yellow,red,"`
		Format string `query:"format" enum:"markdown,"`
	}) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		b, err := e.TodayBriefing(ctx, domain.EnergyLevel(input.Energy))
		if err != nil {
			return nil, handleError(err)
		}
		if input.Format == "markdown" {
			md := markdown(analytics.BriefingMarkdown(b))
			return &struct {
				ContentType string `header:"Content-Type"`
				Body        []byte
			}{ContentType: md.ContentType, Body: md.Body}, nil
		}
		data, err := json.Marshal(b)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: "application/json", Body: data}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "briefing-route",
		Method:      http.MethodGet,
		Path:        "/briefing/route",
		Summary:     "Return the single best sortie for current energy",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Energy string `query:"energy" enum:"green,yellow,red,"`
	}) (*struct {
		Body analytics.BriefingSortie `json:"body"`
	}, error) {
		s, ok, err := e.RouteSortie(ctx, domain.EnergyLevel(input.Energy))
		if err != nil {
			return nil, handleError(err)
		}
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "no routable sortie for this energy level", nil)
		}
		return &struct {
			Body analytics.BriefingSortie `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "drift-report",
		Method:      http.MethodGet,
		Path:        "/drift",
		Summary:     "Drift report: stated priorities vs real block allocation",
	}, func(ctx context.Context, input *struct {
		Format string `query:"format" enum:"markdown,"`
	}) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		report, err := e.DriftReport(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Format == "markdown" {
			md := markdown(analytics.DriftMarkdown(report))
			return &struct {
				ContentType string `header:"Content-Type"`
				Body        []byte
			}{ContentType: md.ContentType, Body: md.Body}, nil
		}
		data, err := json.Marshal(report)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: "application/json", Body: data}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "weekly-review",
		Method:      http.MethodGet,
		Path:        "/review/weekly",
		Summary:     "Generate the weekly review",
	}, func(ctx context.Context, input *struct {
		Format string `query:"format" enum:"markdown,"`
	}) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		rv, err := e.WeeklyReview(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Format == "markdown" {
			md := markdown(analytics.WeeklyReviewMarkdown(rv))
			return &struct {
				ContentType string `header:"Content-Type"`
				Body        []byte
			}{ContentType: md.ContentType, Body: md.Body}, nil
		}
		data, err := json.Marshal(rv)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: "application/json", Body: data}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-health",
		Method:      http.MethodGet,
		Path:        "/dashboard/health",
		Summary:     "Campaign health summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []analytics.CampaignHealth `json:"body"`
	}, error) {
		rows, err := e.Dashboard(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []analytics.CampaignHealth `json:"body"`
		}{Body: rows}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" minimum:"1" maximum:"500"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		items, err := e.Repo.LatestEvents(ctx, limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}
