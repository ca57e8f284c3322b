package config

import "strings"

const (
	StorageModeLocal = "local"
	StorageModeS3    = "s3"
)

// StorageConfig selects where uploaded documents are kept.
type StorageConfig struct {
	Mode           string `env:"STORAGE_MODE"     envDefault:"local"`
	UploadDir      string `env:"UPLOAD_DIR"       envDefault:"./uploads"`
	AWSRegion      string `env:"AWS_REGION"       envDefault:"us-east-1"`
	AWSBucket      string `env:"AWS_BUCKET"       envDefault:"docqueue-uploads"`
	S3Prefix       string `env:"S3_PREFIX"        envDefault:""`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
}

func (s *StorageConfig) Sanitize() {
	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	if s.Mode == "" {
		s.Mode = StorageModeLocal
	}
	if s.UploadDir == "" {
		s.UploadDir = "./uploads"
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = 10 << 20
	}
}
