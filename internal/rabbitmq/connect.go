// Package rabbitmq содержит подключение к брокеру сообщений, объявление
// топологии обмена compliance-событий, публикацию и потребление сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Exchange — обмен, в который публикуются события по документам.
const Exchange = "compliance"

// AlertsQueue — очередь alert-sender'а с событиями по документам.
const AlertsQueue = "alerts.documents"

// Ключи маршрутизации событий.
const (
	RoutingDocumentCreated = "document.created"
	RoutingIRNIssued       = "document.irn"
	RoutingEWayBillIssued  = "document.ewaybill"
)

// Connect подключается к RabbitMQ с повторами.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for i := 0; i < retries; i++ {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал, объявляет обмен и очередь алертов
// и привязывает её ко всем событиям по документам.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := ch.QueueDeclare(
		AlertsQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, AlertsQueue, err)
	}

	for _, key := range []string{RoutingDocumentCreated, RoutingIRNIssued, RoutingEWayBillIssued} {
		if err := ch.QueueBind(AlertsQueue, key, Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w",
				op, AlertsQueue, key, err)
		}
	}

	return ch, nil
}
