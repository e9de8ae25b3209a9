// Package reportstore persists run reports. Every run is written to a
// timestamped JSON file on local disk first; when blob storage credentials are
// configured in the environment the file is then uploaded with curl. Upload
// failures never disturb the local artifact.
package reportstore
