package blobstore

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestNopPresigner(t *testing.T) {
	u, err := NopPresigner{}.PresignGet(context.Background(), "exams/1.pdf")
	if err != nil || u != "" {
		t.Fatalf("expected empty link, got %q %v", u, err)
	}
}

func TestS3Presigner_SignsOffline(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	p := &S3Presigner{client: s3.NewPresignClient(client), bucket: "chims-exams", ttl: 15 * time.Minute}

	raw, err := p.PresignGet(context.Background(), "patients/7/hemograma.pdf")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/chims-exams/patients/7/hemograma.pdf") {
		t.Fatalf("unexpected path %q", u.Path)
	}
}
