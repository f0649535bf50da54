package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

// GeocodingService handles reverse geocoding using the Google Maps API.
// The live map shows "near 1200 Main St" labels next to worker markers, so
// responses are cached: workers parked at a job site would otherwise hammer
// the API with the same coordinates every minute.
type GeocodingService struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu      sync.RWMutex
	cache   map[string]*geocodeCacheEntry
	maxSize int
	ttl     time.Duration
}

type geocodeCacheEntry struct {
	address      string
	createdAt    time.Time
	lastAccessed time.Time
}

// Coordinates represents latitude and longitude
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address represents a reverse-geocoded location
type Address struct {
	FormattedAddress string      `json:"formatted_address"`
	Coordinates      Coordinates `json:"coordinates"`
}

// GoogleGeocodeResponse represents the Google Maps Geocoding API response
type GoogleGeocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// NewGeocodingService creates a new geocoding service
func NewGeocodingService() (*GeocodingService, error) {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY environment variable is required")
	}

	return &GeocodingService{
		apiKey:  apiKey,
		baseURL: "https://maps.googleapis.com/maps/api/geocode/json",
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   make(map[string]*geocodeCacheEntry),
		maxSize: 1000,
		ttl:     24 * time.Hour,
	}, nil
}

// cacheKey quantizes coordinates to ~11m so that GPS jitter around a parked
// vehicle hits the same entry
func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// ReverseGeocode converts coordinates to a street address
func (s *GeocodingService) ReverseGeocode(lat, lng float64) (*Address, error) {
	key := cacheKey(lat, lng)

	if address, ok := s.cacheGet(key); ok {
		return &Address{
			FormattedAddress: address,
			Coordinates:      Coordinates{Lat: lat, Lng: lng},
		}, nil
	}

	params := url.Values{}
	params.Add("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Add("key", s.apiKey)

	fullURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	resp, err := s.client.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	var result GoogleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status != "OK" {
		return nil, fmt.Errorf("geocoding API returned status: %s", result.Status)
	}

	if len(result.Results) == 0 {
		return nil, fmt.Errorf("no results found")
	}

	address := result.Results[0].FormattedAddress
	s.cacheSet(key, address)

	return &Address{
		FormattedAddress: address,
		Coordinates:      Coordinates{Lat: lat, Lng: lng},
	}, nil
}

// Geocode converts an address string to coordinates (used when admins create
// client locations by address)
func (s *GeocodingService) Geocode(address string) (*Address, error) {
	params := url.Values{}
	params.Add("address", address)
	params.Add("key", s.apiKey)

	fullURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	resp, err := s.client.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	var result GoogleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status != "OK" {
		return nil, fmt.Errorf("geocoding API returned status: %s", result.Status)
	}

	if len(result.Results) == 0 {
		return nil, fmt.Errorf("no results found for address: %s", address)
	}

	firstResult := result.Results[0]
	return &Address{
		FormattedAddress: firstResult.FormattedAddress,
		Coordinates:      firstResult.Geometry.Location,
	}, nil
}

func (s *GeocodingService) cacheGet(key string) (string, bool) {
	s.mu.RLock()
	entry, found := s.cache[key]
	s.mu.RUnlock()

	if !found {
		return "", false
	}

	if time.Since(entry.createdAt) > s.ttl {
		s.mu.Lock()
		delete(s.cache, key)
		s.mu.Unlock()
		return "", false
	}

	s.mu.Lock()
	entry.lastAccessed = time.Now()
	s.mu.Unlock()

	return entry.address, true
}

func (s *GeocodingService) cacheSet(key, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cache) >= s.maxSize {
		s.evictOldestLocked()
	}

	s.cache[key] = &geocodeCacheEntry{
		address:      address,
		createdAt:    time.Now(),
		lastAccessed: time.Now(),
	}
}

// evictOldestLocked removes the least recently used entry (caller holds mu)
func (s *GeocodingService) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range s.cache {
		if oldestKey == "" || entry.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessed
		}
	}

	if oldestKey != "" {
		delete(s.cache, oldestKey)
	}
}
