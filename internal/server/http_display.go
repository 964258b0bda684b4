package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	scheme := "http"
	if s.TLSConfig.Enabled() {
		scheme = "https"
	}
	fmt.Printf("Interviewer listening on %s://%s:%s\n", scheme, s.Host, s.Port)
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /                              - Interview UI")
	fmt.Println("  GET    /health                        - Health check")
	fmt.Println("  GET    /stats                         - Server statistics")
	fmt.Println("  POST   /api/sessions                  - Create interview session")
	fmt.Println("  GET    /api/sessions/{id}             - Session snapshot")
	fmt.Println("  DELETE /api/sessions/{id}             - End session")
	fmt.Println("  POST   /api/sessions/{id}/documents   - Upload job description (.txt) and resume (.pdf)")
	fmt.Println("  POST   /api/sessions/{id}/start       - Start interview")
	fmt.Println("  POST   /api/sessions/{id}/messages    - Answer the current question")
	fmt.Println("  GET    /api/sessions/{id}/history     - Conversation history")
	fmt.Println("  POST   /api/sessions/{id}/analysis    - Generate analysis report")
}

func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api/sessions")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
	}
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
}

func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
