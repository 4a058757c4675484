package drive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"coursedrive/internal/config"
	"coursedrive/internal/domain"
	models "coursedrive/internal/domain/models/drive"
	driveSvc "coursedrive/internal/domain/services/drive"
)

var (
	titleRules     = []validation.Rule{validation.Required, validation.RuneLength(1, config.MaxTitleLength)}
	thumbnailRules = []validation.Rule{validation.RuneLength(0, config.MaxThumbnailLength)}
	tagRules       = []validation.Rule{
		validation.Length(0, config.MaxTags),
		validation.Each(validation.Required, validation.RuneLength(1, config.MaxTagLength)),
	}
	payloadRules = []validation.Rule{validation.By(jsonObject)}
)

func (s *driveService) validateCreateRequest(req *driveSvc.CreateRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Type, validation.Required, validation.In(models.KindBook, models.KindContent).
			Error("must be \"book\" or \"content\"")),
		validation.Field(&req.Title, titleRules...),
		validation.Field(&req.Thumbnail, thumbnailRules...),
		validation.Field(&req.Tags, tagRules...),
		validation.Field(&req.Data, payloadRules...),
	)
}

// validateTarget checks the id/type pair that addresses an existing node
func validateTarget(id string, kind models.Kind) error {
	return validation.Errors{
		"id": validation.Validate(id, validation.Required),
		"type": validation.Validate(kind, validation.Required, validation.In(models.KindBook, models.KindContent).
			Error("must be \"book\" or \"content\"")),
	}.Filter()
}

// buildPatch copies the whitelisted keys of data into a patch. Unknown keys, keys that
// do not apply to the node kind and null values are ignored.
func (s *driveService) buildPatch(kind models.Kind, data map[string]json.RawMessage) (*models.Patch, error) {
	patch := &models.Patch{}
	errs := validation.Errors{}

	present := func(key string) (json.RawMessage, bool) {
		raw, ok := data[key]
		if !ok || len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, false
		}
		return raw, true
	}

	if raw, ok := present("title"); ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			errs["title"] = errors.New("must be a string")
		} else {
			title = strings.TrimSpace(title)
			errs["title"] = validation.Validate(title, titleRules...)
			patch.Title = &title
		}
	}

	if raw, ok := present("thumbnail"); ok {
		var thumbnail string
		if err := json.Unmarshal(raw, &thumbnail); err != nil {
			errs["thumbnail"] = errors.New("must be a string")
		} else {
			thumbnail = strings.TrimSpace(thumbnail)
			if thumbnail == "" {
				thumbnail = s.opts.DefaultThumbnail
			}
			errs["thumbnail"] = validation.Validate(thumbnail, thumbnailRules...)
			patch.Thumbnail = &thumbnail
		}
	}

	if raw, ok := present("description"); ok && kind == models.KindBook {
		var description string
		if err := json.Unmarshal(raw, &description); err != nil {
			errs["description"] = errors.New("must be a string")
		} else {
			patch.Description = &description
		}
	}

	if raw, ok := present("data"); ok && kind == models.KindContent {
		errs["data"] = validation.Validate(raw, payloadRules...)
		patch.Data = append(json.RawMessage(nil), raw...)
	}

	if raw, ok := present("isDraft"); ok {
		var isDraft bool
		if err := json.Unmarshal(raw, &isDraft); err != nil {
			errs["isDraft"] = errors.New("must be a boolean")
		} else {
			patch.IsDraft = &isDraft
		}
	}

	if raw, ok := present("tags"); ok {
		var tags []string
		if err := json.Unmarshal(raw, &tags); err != nil {
			errs["tags"] = errors.New("must be a list of strings")
		} else {
			errs["tags"] = validation.Validate(tags, tagRules...)
			patch.Tags = &tags
		}
	}

	if err := errs.Filter(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no updatable fields provided", domain.ErrValidation)
	}
	return patch, nil
}

// jsonObject accepts an empty value or a JSON object
func jsonObject(value interface{}) error {
	raw, _ := value.(json.RawMessage)
	if len(raw) == 0 {
		return nil
	}
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) || len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("must be a JSON object")
	}
	return nil
}
