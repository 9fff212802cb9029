package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// populationParser turns query parameters into a filter and applies the caller's cohort pin.
type populationParser struct {
	validate *validator.Validate
	location *time.Location
}

func newPopulationParser(validate *validator.Validate, loc *time.Location) populationParser {
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return populationParser{validate: validate, location: loc}
}

func (p populationParser) parse(c *gin.Context) (dto.PopulationQuery, models.PopulationFilter, error) {
	var query dto.PopulationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return query, models.PopulationFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}
	query.Cohort = strings.TrimSpace(query.Cohort)
	query.Range = strings.ToLower(strings.TrimSpace(query.Range))
	query.Active = strings.ToLower(strings.TrimSpace(query.Active))
	query.Detailed = strings.ToLower(strings.TrimSpace(query.Detailed))
	if err := p.validate.Struct(query); err != nil {
		return query, models.PopulationFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}

	filter := models.PopulationFilter{Cohort: query.Cohort}

	from, err := p.parseBound(query.From, false)
	if err != nil {
		return query, filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid from: %s", query.From))
	}
	to, err := p.parseBound(query.To, true)
	if err != nil {
		return query, filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid to: %s", query.To))
	}
	if from != nil && to != nil && from.After(*to) {
		return query, filter, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	filter.From, filter.To = from, to

	if query.Active != "" {
		active, err := strconv.ParseBool(query.Active)
		if err != nil {
			return query, filter, appErrors.Clone(appErrors.ErrValidation, "active must be true or false")
		}
		filter.Active = &active
	}

	if err := pinCohort(claimsFromContext(c), &filter); err != nil {
		return query, filter, err
	}
	return query, filter, nil
}

// parseBound accepts RFC3339 timestamps or calendar dates. A date used as an upper bound covers the whole day.
func (p populationParser) parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, p.location)
	if err != nil {
		return nil, err
	}
	if upper {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

// pinCohort restricts a Cohort Admin to their assigned cohort.
func pinCohort(claims *models.JWTClaims, filter *models.PopulationFilter) error {
	if claims == nil || claims.Role != models.RoleCohortAdmin {
		return nil
	}
	assigned := strings.TrimSpace(claims.CohortAssigned)
	if assigned == "" {
		return appErrors.Clone(appErrors.ErrForbidden, "cohort admin has no assigned cohort")
	}
	if filter.Cohort != "" && !strings.EqualFold(filter.Cohort, assigned) {
		return appErrors.Clone(appErrors.ErrForbidden, "cohort is outside your assignment")
	}
	filter.Cohort = assigned
	return nil
}

func parseOptionalBool(raw string) *bool {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}
