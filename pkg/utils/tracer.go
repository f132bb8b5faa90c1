// SPDX-License-Identifier: Apache-2.0

// Package utils holds process-wide plumbing: tracing setup and the gRPC
// dial options shared by every outgoing connection.
package utils

import (
	"context"
	"log"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// InitTracerProvider registers the global OTLP tracer provider. The
// exporter dials lazily, so a missing collector only surfaces as dropped
// batches.
func InitTracerProvider(serviceName string) *sdktrace.TracerProvider {
	exporter, err := otlptracegrpc.New(context.Background())
	if err != nil {
		log.Printf("OTLP trace exporter init: %v", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// Tracer returns the process tracer.
func Tracer() trace.Tracer {
	return otel.Tracer("p4route-ctrl")
}

// DialOptions are the options for dialing a device: insecure channel (BMv2
// speaks plaintext gRPC) with client-side trace instrumentation.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}
