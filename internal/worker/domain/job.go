package domain

import amqp "github.com/rabbitmq/amqp091-go"

// JobMessage carries a transcript job id to a pool worker. Messages that came
// from RabbitMQ keep their delivery tag and acknowledger so the worker can
// settle them after the run.
type JobMessage struct {
	JobID        string            `json:"job_id"`
	DeliveryTag  uint64            `json:"-"`
	Acknowledger amqp.Acknowledger `json:"-"`
}

// FromQueue reports whether the message must be acked or nacked
func (m *JobMessage) FromQueue() bool {
	return m.Acknowledger != nil
}
