package replay

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Service answers queries against one or more datasets. An entity is served
// by the first dataset that recorded it.
type Service struct {
	datasets []*Dataset
	metrics  *Metrics
}

// NewService creates a Service over the given datasets. metrics may be nil.
func NewService(metrics *Metrics, datasets ...*Dataset) *Service {
	return &Service{datasets: datasets, metrics: metrics}
}

// Query routes the request to the dataset holding its entity.
func (s *Service) Query(req Request) ([]Row, error) {
	rows, err := s.query(req)
	s.metrics.observe(len(rows), err)
	if err != nil {
		logrus.Debugf("query for %s failed: %v", req.EntityID, err)
	}
	return rows, err
}

func (s *Service) query(req Request) ([]Row, error) {
	empty := true
	for _, d := range s.datasets {
		if d == nil || d.Entities() == 0 {
			continue
		}
		empty = false
		if d.HasEntity(req.EntityID) {
			return d.Query(req)
		}
	}
	if empty {
		return nil, ErrEmptyDataset
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, req.EntityID)
}

// IsClientError reports whether err was caused by the request rather than
// the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrUnknownProperty) ||
		errors.Is(err, ErrInvalidRange)
}
