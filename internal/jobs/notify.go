package jobs

import (
	"context"

	"catalog-workers/internal/common/aws"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
)

// Notifier announces terminal job states.
type Notifier interface {
	Notify(ctx context.Context, st *Status) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *Status) error { return nil }

type notification struct {
	JobID        string `json:"jobId"`
	State        State  `json:"state"`
	Products     int    `json:"products"`
	Filename     string `json:"filename,omitempty"`
	ErrorType    string `json:"errorType,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SNSNotifier publishes a small summary; the workbook itself stays in the job store.
type SNSNotifier struct {
	client *aws.SNSClient
	logger logger.Logger
}

func NewSNSNotifier(client *aws.SNSClient, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{client: client, logger: log}
}

func (n *SNSNotifier) Notify(ctx context.Context, st *Status) error {
	msg := notification{
		JobID:        st.JobID,
		State:        st.State,
		Products:     st.Products,
		Filename:     st.Filename,
		ErrorType:    st.ErrorType,
		ErrorMessage: st.ErrorMessage,
	}
	id, err := n.client.PublishJSON(ctx, "Catalog spreadsheet "+string(st.State), msg, map[string]string{
		"state": string(st.State),
	})
	if err != nil {
		return errors.NewNotificationFailedError("sns", err)
	}
	n.logger.Debug("Job notification published", map[string]interface{}{
		"jobId":     st.JobID,
		"messageId": id,
	})
	return nil
}
