package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureTopicsExistWithoutBrokers(t *testing.T) {
	err := EnsureTopicsExist(nil, []string{"storefront.operator.notifications"}, nil)
	assert.Error(t, err)
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "storefront.operator.notifications", nil)
	defer p.Close()

	assert.Equal(t, "storefront.operator.notifications", p.Topic)
	assert.Equal(t, "storefront.operator.notifications", p.Writer.Topic)
	assert.NotNil(t, p.Logger)
}
