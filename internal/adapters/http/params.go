package httpadapter

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

func pathParam(r *http.Request, name string) (string, error) {
	var out string
	if err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, r.PathValue(name), &out); err != nil {
		return "", domain.WrapError(domain.ErrValidation, "bind "+name, err)
	}
	return out, nil
}

func queryParam(r *http.Request, name string) (string, error) {
	var out string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &out); err != nil {
		return "", domain.WrapError(domain.ErrValidation, "bind "+name, err)
	}
	return out, nil
}

func pipelineKey(r *http.Request) (domain.PipelineKey, error) {
	rawType, err := pathParam(r, "pipeline_type")
	if err != nil {
		return domain.PipelineKey{}, err
	}
	pipelineType, err := domain.ParsePipelineType(rawType)
	if err != nil {
		return domain.PipelineKey{}, err
	}
	resumeID, err := queryParam(r, "resume_id")
	if err != nil {
		return domain.PipelineKey{}, err
	}
	return domain.PipelineKey{
		OwnerID:  ownerFromContext(r.Context()),
		Type:     pipelineType,
		ResumeID: resumeID,
	}, nil
}
