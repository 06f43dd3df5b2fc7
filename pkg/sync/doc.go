/*
The sync package implements davsync's sync algorithm. It mirrors local
changes onto a folder of a WebDAV server.

There is no snapshot of either side. Every change is handled by looking at
the current state of the local path:
1) If the path doesn't exist locally, it's deleted from the server.
2) If the path is a directory, the remote directory is created, and every
   file and directory under it is synced as well.
3) Otherwise, the file's contents are uploaded, overwriting the remote file.

Destination URLs are computed by the Mapper, which is the only place that
joins local paths onto remote URLs.
*/
package sync
