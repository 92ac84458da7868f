/*
Package writepath composes the Entity Store, Modification Planner, and
Store Event Bus into the two top-level block
operations an indexing node performs: transacting a block's buffered
operations and reverting to a prior block. Each commits through a
single backing-store
transaction and emits exactly one StoreEvent, the way
pkg/entitystore.BoltStore's db.Update calls are each wrapped by exactly
one bus publish here.
*/
package writepath
