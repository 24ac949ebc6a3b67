package mq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKafkaHeaderCarrier(t *testing.T) {
	var c KafkaHeaderCarrier

	assert.Equal(t, "", c.Get("traceparent"))

	c.Set("traceparent", "00-abc-def-01")
	c.Set("baggage", "k=v")
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())

	// 同名键覆盖而不是追加
	c.Set("traceparent", "00-abc-def-02")
	assert.Equal(t, "00-abc-def-02", c.Get("traceparent"))
	assert.Len(t, c.Keys(), 2)
}
