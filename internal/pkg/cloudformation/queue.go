package cloudformation

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"

	"github.com/andrey-berenda/apivpc/internal/pkg/network"
	"github.com/andrey-berenda/apivpc/internal/pkg/ptr"
)

func (b *builder) addQueue(project string, queue network.Queue) {
	props := &awssqs.CfnQueueProps{
		QueueName: ptr.Of(network.QueueName(b.plan, project, queue.Name, queue.FIFO)),
	}
	if queue.FIFO {
		props.FifoQueue = ptr.Of(true)
	}
	if queue.VisibilityTimeout > 0 {
		props.VisibilityTimeout = jsii.Number(float64(queue.VisibilityTimeout))
	}
	if queue.RetentionPeriod > 0 {
		props.MessageRetentionPeriod = jsii.Number(float64(queue.RetentionPeriod))
	}

	if queue.DeadLetter != nil {
		// a FIFO queue can only redrive into a FIFO queue
		dlqProps := &awssqs.CfnQueueProps{
			QueueName:              ptr.Of(network.DeadLetterQueueName(b.plan, project, queue.Name, queue.FIFO)),
			MessageRetentionPeriod: jsii.Number(1209600),
		}
		if queue.FIFO {
			dlqProps.FifoQueue = ptr.Of(true)
		}
		dlq := awssqs.NewCfnQueue(b.stack, ptr.Of(network.DeadLetterQueueID(project, queue.Name)), dlqProps)
		props.RedrivePolicy = map[string]interface{}{
			"deadLetterTargetArn": dlq.AttrArn(),
			"maxReceiveCount":     queue.DeadLetter.MaxReceiveCount,
		}
		b.output(network.DeadLetterQueueARNOutput(project, queue.Name), dlq.AttrArn(), fmt.Sprintf("%s %s dead-letter queue arn", project, queue.Name))
	}

	q := awssqs.NewCfnQueue(b.stack, ptr.Of(network.QueueID(project, queue.Name)), props)
	b.output(network.QueueURLOutput(project, queue.Name), q.Ref(), fmt.Sprintf("%s %s queue url", project, queue.Name))
	b.output(network.QueueARNOutput(project, queue.Name), q.AttrArn(), fmt.Sprintf("%s %s queue arn", project, queue.Name))
}
