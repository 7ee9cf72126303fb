package tracker

import (
	"os"
	"time"

	json "github.com/goccy/go-json"
	"pricewatch/internal/models"
	"pricewatch/internal/providers"
	"pricewatch/internal/services"
	"pricewatch/internal/tracker/interfaces"
)

type FileManager struct {
	service    services.TrackerServiceInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, service services.TrackerServiceInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		service:    service,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	storage := f.service.GetSnapshot()

	jsonData, err := json.Marshal(storage)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// legacyHistoryPoint is the old snapshot layout where each product carried
// its price history inline.
type legacyHistoryPoint struct {
	Price int64     `json:"price"`
	Date  time.Time `json:"date"`
}

func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var storage models.Storage
	if err := json.Unmarshal(decompressedData, &storage); err != nil {
		f.logger.Warnf(providers.TypeApp, "Inconsistent snapshot file, ignoring it")
		return err
	}
	if storage.Products == nil {
		return nil
	}

	if storage.History == nil {
		if history := f.migrateInlineHistory(decompressedData); history != nil {
			storage.History = history
		}
	}

	f.service.PutSnapshot(&storage)
	return nil
}

// migrateInlineHistory recovers price series from the old format where
// history lived inside each product record.
func (f *FileManager) migrateInlineHistory(data []byte) map[string][]models.PricePoint {
	var legacy struct {
		Products map[string]struct {
			Currency     string               `json:"currency"`
			PriceHistory []legacyHistoryPoint `json:"price_history"`
		} `json:"products"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil
	}

	history := make(map[string][]models.PricePoint)
	for id, p := range legacy.Products {
		if len(p.PriceHistory) == 0 {
			continue
		}
		currency := p.Currency
		if currency == "" {
			currency = "INR"
		}
		series := make([]models.PricePoint, 0, len(p.PriceHistory))
		for _, hp := range p.PriceHistory {
			series = append(series, models.PricePoint{
				ProductID:  id,
				ObservedAt: hp.Date,
				PriceMinor: hp.Price,
				Currency:   currency,
			})
		}
		history[id] = series
	}
	if len(history) == 0 {
		return nil
	}

	f.logger.Warnf(providers.TypeApp, "Migrated inline price history for %d products", len(history))
	return history
}
