package pipeline

import (
	"fmt"
	"strconv"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/validation"
)

// Request is one spreadsheet generation submission. Images are keyed by product index ("0",
// "1", ...) or by SKU.
type Request struct {
	Products    []catalog.Product           `json:"products"`
	Images      map[string]catalog.ImageSet `json:"images,omitempty"`
	Template    []byte                      `json:"template,omitempty"`
	ForceUpdate bool                        `json:"forceUpdate"`
}

// Job is the part of a request that travels to the executor. The template stays in the
// artifact store.
type Job struct {
	ID          string                      `json:"jobId"`
	Products    []catalog.Product           `json:"products"`
	Images      map[string]catalog.ImageSet `json:"images,omitempty"`
	ForceUpdate bool                        `json:"forceUpdate"`
}

func (r *Request) Job(id string) Job {
	return Job{ID: id, Products: r.Products, Images: r.Images, ForceUpdate: r.ForceUpdate}
}

var submissionSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"products": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"properties": {
					"titulo": {"type": "string"},
					"sku": {"type": "string"},
					"variacoes": {
						"type": ["array", "null"],
						"items": {
							"type": "object",
							"required": ["sku", "tipo"],
							"properties": {
								"sku": {"type": "string", "minLength": 1},
								"tipo": {"type": "string", "minLength": 1}
							}
						}
					}
				}
			}
		},
		"images": {
			"type": ["object", "null"],
			"additionalProperties": {
				"type": "object",
				"properties": {
					"principal": {"type": "string"},
					"amostra": {"type": "string"},
					"extra": {"type": ["array", "null"], "items": {"type": "string"}}
				}
			}
		}
	}
}`)

// Validate checks the fatal preconditions in order: template, products, then payload shape.
func (r *Request) Validate() error {
	if len(r.Template) == 0 {
		return errors.NewTemplateMissingError()
	}
	if len(r.Products) == 0 {
		return errors.NewNoProductsError()
	}
	doc := r.Job("")
	if err := submissionSchema.Validate(doc).Error(); err != nil {
		return errors.NewInvalidSubmissionError(err.Error())
	}
	for key, set := range r.Images {
		urls := append([]string{set.Principal, set.Sample}, set.Extra...)
		for _, u := range urls {
			if u != "" && !validation.ValidateURL(u) {
				return errors.NewInvalidSubmissionError(fmt.Sprintf("images.%s: invalid url %q", key, u))
			}
		}
	}
	return nil
}

// ImagesFor looks a product's images up by index, then by SKU.
func ImagesFor(images map[string]catalog.ImageSet, index int, sku string) catalog.ImageSet {
	if set, ok := images[strconv.Itoa(index)]; ok {
		return set
	}
	if sku != "" {
		if set, ok := images[sku]; ok {
			return set
		}
	}
	return catalog.ImageSet{}
}
