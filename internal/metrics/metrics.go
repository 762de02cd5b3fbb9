package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	summarySaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumopro",
			Name:      "summary_saves_total",
			Help:      "Summary document saves by result",
		},
		[]string{"result"},
	)

	collectionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumopro",
			Name:      "collection_operations_total",
			Help:      "Gallery collection operations by collection, operation and result",
		},
		[]string{"collection", "op", "result"},
	)

	gallerySwitches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumopro",
			Name:      "gallery_switches_total",
			Help:      "Gallery mode switches by target collection",
		},
		[]string{"collection"},
	)

	extractDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumopro",
			Name:      "pdf_extract_duration_seconds",
			Help:      "Duration of PDF image extraction runs",
			Buckets:   prometheus.DefBuckets,
		},
	)

	extractedImages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resumopro",
			Name:      "pdf_extracted_images_total",
			Help:      "Total images extracted from uploaded PDFs",
		},
	)

	uploadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumopro",
			Name:      "upload_bytes_total",
			Help:      "Bytes received via multipart uploads by collection",
		},
		[]string{"collection"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(summarySaves, collectionOps, gallerySwitches, extractDuration, extractedImages, uploadBytes)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncSave(result string) { summarySaves.WithLabelValues(result).Inc() }

func IncCollectionOp(collection, op, result string) {
	collectionOps.WithLabelValues(collection, op, result).Inc()
}

func IncGallerySwitch(collection string) { gallerySwitches.WithLabelValues(collection).Inc() }

func ObserveExtract(dur time.Duration, images int) {
	extractDuration.Observe(dur.Seconds())
	extractedImages.Add(float64(images))
}

func AddUploadBytes(collection string, n int64) {
	uploadBytes.WithLabelValues(collection).Add(float64(n))
}
