package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xela07ax/cintia-dashboard/internal/domain"
)

// Имена query-параметров: повторяются для каждого выбранного значения
// (?facultad=Artes&facultad=Salud).
const (
	paramFaculty = "facultad"
	paramProgram = "programa"
)

var validate = validator.New()

// parseSelection читает выбор пользователя из query и проверяет ограничения.
func parseSelection(r *http.Request) (domain.Selection, error) {
	q := r.URL.Query()
	sel := domain.Selection{
		Faculties: q[paramFaculty],
		Programs:  q[paramProgram],
	}.Normalize()

	if err := validate.Struct(sel); err != nil {
		apiErr := NewAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "invalid filter selection")
		apiErr.Details = validationDetails(err)
		return domain.Selection{}, apiErr
	}
	return sel, nil
}

// selectionQuery кодирует выбор обратно в query (для ссылок на графики).
func selectionQuery(sel domain.Selection) string {
	q := url.Values{}
	for _, f := range sel.Faculties {
		q.Add(paramFaculty, f)
	}
	for _, p := range sel.Programs {
		q.Add(paramProgram, p)
	}
	return q.Encode()
}

func validationDetails(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s: failed on %s", strings.ToLower(fe.Namespace()), fe.Tag()))
	}
	return out
}
