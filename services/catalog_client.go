package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/k-tong-dev/v0-elearning-sub007/apperrors"
)

// Course is the catalog service's view of a course. Price and name are for
// display and add-time capture only; they never override a price already
// captured in a cart.
type Course struct {
	ID           string  `json:"id"`
	CourseKey    string  `json:"course_key"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	InstructorID string  `json:"instructor_id"`
}

type CatalogClient struct {
	baseURL string
	client  *http.Client
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// FetchCourseByKey looks a course up by its stable key.
func (c *CatalogClient) FetchCourseByKey(ctx context.Context, courseKey string) (*Course, error) {
	url := fmt.Sprintf("%s/courses/internal/%s", c.baseURL, courseKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned %d", resp.StatusCode)
	}

	var course Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		return nil, err
	}
	return &course, nil
}
